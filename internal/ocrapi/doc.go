// Package ocrapi binds the OCR service's HTTP contract to the transport.
package ocrapi

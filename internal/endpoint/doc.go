// Package endpoint picks the OCR service base URL at startup by probing an
// ordered list of candidates one at a time. The first candidate that answers
// GET /api/test with any status below 500 wins. An empty configured base means
// same origin and is chosen without probing.
package endpoint

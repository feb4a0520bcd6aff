package ui

import "time"

// LayoutCompactWidth is the width below which the results table drops the
// timestamp column.
const LayoutCompactWidth = 90

// LogFetchLimit is the number of log lines shown in the log view.
const LogFetchLimit = 2000

// DefaultUIInterval is how often the UI re-reads state.
const DefaultUIInterval = time.Second

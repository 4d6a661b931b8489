package engine

import "time"

const (
	defaultSyncInterval    = 10 * time.Second
	defaultMempoolInterval = 30 * time.Second
	defaultMaxReorgDepth   = 100
	defaultFetchWorkers    = 8

	linkageWindow    = 512
	driftReportLimit = 100
)

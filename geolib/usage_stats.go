package geolib

import (
	"encoding/json"
	"errors"
	"sync"
	"time"
)

// UsageStats tracks how a resolver is used: outcomes of the queries
// and a state of the current dataset.
type UsageStats struct {
	mutex sync.Mutex

	lastUpdated time.Time
	lastUsed    time.Time
	datasetName string
	networks    int
	issues      int

	successCount       uint64
	invalidCount       uint64
	noMatchCount       uint64
	missingEntityCount uint64
	failureCount       uint64
	ambiguousCount     uint64
}

func (u *UsageStats) Used(err error, ambiguous bool) {
	now := time.Now()

	u.mutex.Lock()
	defer u.mutex.Unlock()

	u.lastUsed = now

	if ambiguous {
		u.ambiguousCount++
	}

	switch {
	case err == nil:
		u.successCount++
	case errors.Is(err, ErrInvalidAddress):
		u.invalidCount++
	case errors.Is(err, ErrNoMatch):
		u.noMatchCount++
	case errors.Is(err, ErrMissingEntity):
		u.missingEntityCount++
	default:
		u.failureCount++
	}
}

func (u *UsageStats) Updated(snapshot *Snapshot) {
	now := time.Now()

	u.mutex.Lock()
	defer u.mutex.Unlock()

	u.lastUpdated = now
	u.datasetName = snapshot.Name()
	u.networks = snapshot.Index().Len()
	u.issues = snapshot.Issues()
}

func (u *UsageStats) MarshalJSON() ([]byte, error) {
	var lastUpdatedTime, lastUsedTime int64

	u.mutex.Lock()

	if !u.lastUpdated.IsZero() {
		lastUpdatedTime = u.lastUpdated.Unix()
	}

	if !u.lastUsed.IsZero() {
		lastUsedTime = u.lastUsed.Unix()
	}

	rawStruct := struct {
		Dataset            string `json:"dataset"`
		Networks           int    `json:"networks"`
		Issues             int    `json:"issues"`
		LastUpdated        int64  `json:"last_updated"`
		LastUsed           int64  `json:"last_used"`
		SuccessCount       uint64 `json:"success_count"`
		InvalidCount       uint64 `json:"invalid_address_count"`
		NoMatchCount       uint64 `json:"no_match_count"`
		MissingEntityCount uint64 `json:"missing_entity_count"`
		FailureCount       uint64 `json:"failure_count"`
		AmbiguousCount     uint64 `json:"ambiguous_count"`
	}{
		Dataset:            u.datasetName,
		Networks:           u.networks,
		Issues:             u.issues,
		LastUpdated:        lastUpdatedTime,
		LastUsed:           lastUsedTime,
		SuccessCount:       u.successCount,
		InvalidCount:       u.invalidCount,
		NoMatchCount:       u.noMatchCount,
		MissingEntityCount: u.missingEntityCount,
		FailureCount:       u.failureCount,
		AmbiguousCount:     u.ambiguousCount,
	}

	u.mutex.Unlock()

	return json.Marshal(&rawStruct)
}

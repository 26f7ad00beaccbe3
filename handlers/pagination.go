package handlers

import (
	"sort"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"postal-prediction-api/models"
)

const (
	DefaultLogLimit = 50
	MaxLogLimit     = 200
)

// LogQuery are the cursor parameters for paging through a prediction log,
// newest entries first. The cursor is the logged timestamp of the last
// record on the previous page.
type LogQuery struct {
	Limit  int
	Before *time.Time
}

// LogPage is one page of prediction records plus the cursor for the next.
type LogPage struct {
	Predictions []models.PredictionRecord `json:"predictions"`
	NextCursor  string                    `json:"next_cursor,omitempty"`
	HasMore     bool                      `json:"has_more"`
}

func ParseLogQuery(c *gin.Context) LogQuery {
	q := LogQuery{Limit: DefaultLogLimit}

	if limitStr := c.Query("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			q.Limit = l
		}
	}
	if q.Limit > MaxLogLimit {
		q.Limit = MaxLogLimit
	}

	if beforeStr := c.Query("before"); beforeStr != "" {
		if t, err := time.Parse(time.RFC3339Nano, beforeStr); err == nil {
			q.Before = &t
		}
	}

	return q
}

// Page orders the records newest first, applies the cursor and cuts one
// page. The input slice is reordered in place.
func (q LogQuery) Page(records []models.PredictionRecord) LogPage {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].LoggedAt.After(records[j].LoggedAt)
	})

	if q.Before != nil {
		kept := records[:0]
		for _, rec := range records {
			if rec.LoggedAt.Before(*q.Before) {
				kept = append(kept, rec)
			}
		}
		records = kept
	}

	hasMore := len(records) > q.Limit
	if hasMore {
		records = records[:q.Limit]
	}

	var nextCursor string
	if hasMore && len(records) > 0 {
		nextCursor = records[len(records)-1].LoggedAt.Format(time.RFC3339Nano)
	}
	if records == nil {
		records = []models.PredictionRecord{}
	}

	return LogPage{Predictions: records, NextCursor: nextCursor, HasMore: hasMore}
}

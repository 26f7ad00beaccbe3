package handlers

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"postal-prediction-api/models"
)

func logQueryContext(t *testing.T, query string) *gin.Context {
	t.Helper()
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/api/predictions/log"+query, nil)
	return c
}

func loggedAt(day int) time.Time {
	return time.Date(2024, 1, day, 10, 0, 0, 0, time.UTC)
}

func logRecords(days ...int) []models.PredictionRecord {
	records := make([]models.PredictionRecord, 0, len(days))
	for _, d := range days {
		records = append(records, models.PredictionRecord{
			EntityID: "RR123456789DZ",
			LoggedAt: loggedAt(d),
		})
	}
	return records
}

func TestParseLogQuery(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantLimit  int
		wantBefore bool
	}{
		{"defaults", "", DefaultLogLimit, false},
		{"explicit limit", "?limit=10", 10, false},
		{"limit capped", "?limit=9999", MaxLogLimit, false},
		{"invalid limit ignored", "?limit=abc", DefaultLogLimit, false},
		{"negative limit ignored", "?limit=-5", DefaultLogLimit, false},
		{"before cursor", "?before=2024-01-05T10:00:00Z", DefaultLogLimit, true},
		{"invalid before ignored", "?before=yesterday", DefaultLogLimit, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := ParseLogQuery(logQueryContext(t, tt.query))
			if q.Limit != tt.wantLimit {
				t.Errorf("Limit = %d, want %d", q.Limit, tt.wantLimit)
			}
			if (q.Before != nil) != tt.wantBefore {
				t.Errorf("Before set = %v, want %v", q.Before != nil, tt.wantBefore)
			}
			if tt.wantBefore && !q.Before.Equal(loggedAt(5)) {
				t.Errorf("Before = %v, want %v", q.Before, loggedAt(5))
			}
		})
	}
}

func TestLogQueryPageOrdersNewestFirst(t *testing.T) {
	page := LogQuery{Limit: 10}.Page(logRecords(3, 7, 5))

	if len(page.Predictions) != 3 || page.HasMore {
		t.Fatalf("got %d records, hasMore=%v", len(page.Predictions), page.HasMore)
	}
	for i, want := range []int{7, 5, 3} {
		if got := page.Predictions[i].LoggedAt; !got.Equal(loggedAt(want)) {
			t.Errorf("record %d logged at %v, want day %d", i, got, want)
		}
	}
	if page.NextCursor != "" {
		t.Errorf("NextCursor = %q, want empty on a final page", page.NextCursor)
	}
}

func TestLogQueryPageCursor(t *testing.T) {
	records := logRecords(1, 2, 3, 4, 5)

	first := LogQuery{Limit: 2}.Page(records)
	if len(first.Predictions) != 2 || !first.HasMore {
		t.Fatalf("first page: %d records, hasMore=%v", len(first.Predictions), first.HasMore)
	}
	if want := loggedAt(4).Format(time.RFC3339Nano); first.NextCursor != want {
		t.Fatalf("NextCursor = %q, want %q", first.NextCursor, want)
	}

	cursor, err := time.Parse(time.RFC3339Nano, first.NextCursor)
	if err != nil {
		t.Fatalf("parse cursor: %v", err)
	}
	second := LogQuery{Limit: 2, Before: &cursor}.Page(logRecords(1, 2, 3, 4, 5))
	if len(second.Predictions) != 2 || !second.HasMore {
		t.Fatalf("second page: %d records, hasMore=%v", len(second.Predictions), second.HasMore)
	}
	if !second.Predictions[0].LoggedAt.Equal(loggedAt(3)) {
		t.Errorf("second page starts at %v, want day 3", second.Predictions[0].LoggedAt)
	}
}

func TestLogQueryPageEmpty(t *testing.T) {
	page := LogQuery{Limit: 10}.Page(nil)
	if page.Predictions == nil {
		t.Fatal("Predictions must be an empty slice, not nil, so the JSON field is []")
	}
	if len(page.Predictions) != 0 || page.HasMore || page.NextCursor != "" {
		t.Errorf("unexpected page for empty log: %+v", page)
	}
}

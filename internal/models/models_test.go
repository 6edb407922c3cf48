package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestAudioRecord(t *testing.T) {
	t.Run("Queryable", func(t *testing.T) {
		cases := []struct {
			name   string
			record AudioRecord
			want   bool
		}{
			{"title and artist", AudioRecord{Title: "Roads", Artist: "Portishead"}, true},
			{"missing artist", AudioRecord{Title: "Roads"}, false},
			{"missing title", AudioRecord{Artist: "Portishead"}, false},
			{"filename only", AudioRecord{FileName: "track.mp3"}, false},
		}

		for _, c := range cases {
			t.Run(c.name, func(t *testing.T) {
				if got := c.record.Queryable(); got != c.want {
					t.Errorf("Queryable() = %v, want %v", got, c.want)
				}
			})
		}
	})

	t.Run("Query shape", func(t *testing.T) {
		r := AudioRecord{Title: "Roads", Artist: "Portishead"}
		if got := r.Query(); got != "Roads - Portishead" {
			t.Errorf("Query() = %q", got)
		}
	})
}

func TestChannelInfo_PlaylistName(t *testing.T) {
	cases := []struct {
		name string
		info ChannelInfo
		want string
	}{
		{"title and username", ChannelInfo{Title: "Salvation Radio", Username: "songofsalvation"}, "Salvation Radio (@songofsalvation)"},
		{"title only", ChannelInfo{Title: "Salvation Radio"}, "Salvation Radio"},
		{"username only", ChannelInfo{Username: "songofsalvation"}, "@songofsalvation"},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := c.info.PlaylistName(); got != c.want {
				t.Errorf("PlaylistName() = %q, want %q", got, c.want)
			}
		})
	}
}

func TestExtractionResult(t *testing.T) {
	records := []AudioRecord{
		{Title: "Roads", Artist: "Portishead", MessageID: 1},
		{FileName: "voice.ogg", MessageID: 2},
	}
	at := time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)
	result := NewExtractionResult(ChannelInfo{Username: "songofsalvation"}, records, at)

	t.Run("stamps the scrape time", func(t *testing.T) {
		if result.ScrapedAt != "2024-03-05 12:00:00" {
			t.Errorf("ScrapedAt = %q", result.ScrapedAt)
		}
	})

	t.Run("counts all records", func(t *testing.T) {
		if result.TotalFiles != 2 {
			t.Errorf("TotalFiles = %d", result.TotalFiles)
		}
	})

	t.Run("QueryableRecords filters", func(t *testing.T) {
		queryable := result.QueryableRecords()
		if len(queryable) != 1 || queryable[0].MessageID != 1 {
			t.Errorf("unexpected queryable records: %+v", queryable)
		}
	})

	t.Run("serializes with document field names", func(t *testing.T) {
		data, err := json.Marshal(result)
		if err != nil {
			t.Fatalf("marshal failed: %v", err)
		}

		var raw map[string]json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			t.Fatalf("unmarshal failed: %v", err)
		}
		for _, field := range []string{"scraped_at", "channel_info", "total_files", "audio_files"} {
			if _, ok := raw[field]; !ok {
				t.Errorf("expected field %q in document", field)
			}
		}
	})
}

func TestSearchCandidate_Display(t *testing.T) {
	t.Run("single artist", func(t *testing.T) {
		c := SearchCandidate{Name: "Roads", Artists: []string{"Portishead"}}
		if got := c.Display(); got != "Roads - Portishead" {
			t.Errorf("Display() = %q", got)
		}
	})

	t.Run("multiple artists", func(t *testing.T) {
		c := SearchCandidate{Name: "How Great Thou Art", Artists: []string{"Carrie Underwood", "Vince Gill"}}
		if got := c.Display(); got != "How Great Thou Art - Carrie Underwood, Vince Gill" {
			t.Errorf("Display() = %q", got)
		}
	})
}

func TestSyncReport_PlaylistURL(t *testing.T) {
	report := &SyncReport{PlaylistID: "37i9dQZF1DXcBWIGoYBM5M"}
	want := "https://open.spotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M"
	if got := report.PlaylistURL(); got != want {
		t.Errorf("PlaylistURL() = %q, want %q", got, want)
	}
}

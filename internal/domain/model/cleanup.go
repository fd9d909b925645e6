package model

import "time"

// CleanupHistory is the append-only audit row written at the end of a retention run.
type CleanupHistory struct {
	ID             int64     `json:"id"`
	PostsArchived  int       `json:"posts_archived"`
	PostsDeleted   int       `json:"posts_deleted"`
	QueueCleaned   int       `json:"queue_cleaned"`
	TotalPosts     int       `json:"total_posts"`
	OldPosts       int       `json:"old_posts"`
	Cutoff         time.Time `json:"cutoff"`
	TimestampField string    `json:"timestamp_field"`
	Success        bool      `json:"success"`
	ErrorMessage   *string   `json:"error_message,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// RetentionSummary is the outcome of one retention run.
type RetentionSummary struct {
	PostsArchived  int       `json:"posts_archived"`
	PostsDeleted   int       `json:"posts_deleted"`
	QueueCleaned   int       `json:"queue_cleaned"`
	TotalPosts     int       `json:"total_posts"`
	OldPosts       int       `json:"old_posts"`
	Cutoff         time.Time `json:"cutoff"`
	TimestampField string    `json:"timestamp_field"`
	NothingToDo    bool      `json:"nothing_to_do,omitempty"`
	CountersReset  bool      `json:"counters_reset,omitempty"`
}

// History converts the summary into the audit row persisted after the run.
func (s *RetentionSummary) History(success bool, errMsg *string) CleanupHistory {
	return CleanupHistory{
		PostsArchived:  s.PostsArchived,
		PostsDeleted:   s.PostsDeleted,
		QueueCleaned:   s.QueueCleaned,
		TotalPosts:     s.TotalPosts,
		OldPosts:       s.OldPosts,
		Cutoff:         s.Cutoff,
		TimestampField: s.TimestampField,
		Success:        success,
		ErrorMessage:   errMsg,
	}
}

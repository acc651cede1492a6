package telemetry

// BatchSize caps the number of records returned by a single Unsent call.
const BatchSize = 50

// Record is a single buffered location sample.
type Record struct {
	ID        int64   `json:"id"`
	Timestamp int64   `json:"timestamp"`
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	Speed     float64 `json:"speed"`
	IsMock    bool    `json:"is_mock"`
	// Sent is persisted and filtered on but never transitioned by the store.
	Sent bool `json:"sent"`
}

// DatabaseHealth captures diagnostic information about the buffer database.
type DatabaseHealth struct {
	DBPath           string   `json:"db_path"`
	DatabaseExists   bool     `json:"database_exists"`
	DatabaseReadable bool     `json:"database_readable"`
	SchemaVersion    int      `json:"schema_version"`
	TableExists      bool     `json:"table_exists"`
	ColumnsPresent   []string `json:"columns_present,omitempty"`
	MissingColumns   []string `json:"missing_columns,omitempty"`
	IntegrityCheck   bool     `json:"integrity_check"`
	TotalRecords     int      `json:"total_records"`
	UnsentRecords    int      `json:"unsent_records"`
	Error            string   `json:"error,omitempty"`
}

type insertOptions struct {
	id    int64
	hasID bool
}

// InsertOption customizes a single Insert call.
type InsertOption func(*insertOptions)

// WithID inserts the record under an explicit identifier instead of letting
// the store assign the next one. Any non-zero identifier is accepted,
// including negative ones.
func WithID(id int64) InsertOption {
	return func(o *insertOptions) {
		o.id = id
		o.hasID = true
	}
}

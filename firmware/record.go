package firmware

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const (
	// IndexKey holds the JSON array of record ids.
	IndexKey = "firmware_keys"

	// RecordKeyPrefix prefixes the key of each record blob.
	RecordKeyPrefix = "firmware_"

	// SchemaVersion is the record layout written by this package.
	SchemaVersion = 1
)

var (
	ErrMalformedRecord   = errors.New("malformed firmware record")
	ErrMalformedIndex    = errors.New("malformed firmware index")
	ErrNotFound          = errors.New("firmware record not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInvalidUpload     = errors.New("invalid firmware upload")
	ErrUnavailable       = errors.New("key-value store unavailable")
)

// Status is the review state of a firmware record.
type Status string

const (
	StatusPending  Status = "pending"
	StatusVerified Status = "verified"
	StatusRejected Status = "rejected"
)

func (s Status) valid() bool {
	switch s {
	case StatusPending, StatusVerified, StatusRejected:
		return true
	}
	return false
}

// Record is one firmware image submitted for review.
type Record struct {
	SchemaVersion int    `json:"schema_version"`
	ID            string `json:"id"`
	Name          string `json:"name"`
	Ecu           string `json:"ecu"`
	Version       string `json:"version"`
	ImageHash     string `json:"image_hash"`
	Uploader      string `json:"uploader"`
	Status        Status `json:"status"`
	Timestamp     int64  `json:"timestamp"`
	UpdatedAt     int64  `json:"updated_at"`
}

// RecordKey returns the key of the blob holding record id.
func RecordKey(id string) string {
	return RecordKeyPrefix + id
}

// ParseRecord decodes and validates a stored blob. Unknown fields are rejected. Every
// failure wraps ErrMalformedRecord.
func ParseRecord(bz []byte) (Record, error) {
	dec := json.NewDecoder(bytes.NewReader(bz))
	dec.DisallowUnknownFields()

	var r Record
	if err := dec.Decode(&r); err != nil {
		return Record{}, errors.Wrap(ErrMalformedRecord, err.Error())
	}
	if dec.More() {
		return Record{}, errors.Wrap(ErrMalformedRecord, "trailing data after record")
	}
	if err := r.Validate(); err != nil {
		return Record{}, errors.Wrap(ErrMalformedRecord, err.Error())
	}
	return r, nil
}

// Validate checks the record against schema v1.
func (r Record) Validate() error {
	if r.SchemaVersion != SchemaVersion {
		return fmt.Errorf("unsupported schema version %d", r.SchemaVersion)
	}
	if _, err := uuid.Parse(r.ID); err != nil {
		return fmt.Errorf("invalid id %q", r.ID)
	}
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if strings.TrimSpace(r.Ecu) == "" {
		return fmt.Errorf("ecu is required")
	}
	if r.ImageHash != "" {
		if _, err := hexutil.Decode(r.ImageHash); err != nil {
			return fmt.Errorf("image hash: %v", err)
		}
	}
	if !r.Status.valid() {
		return fmt.Errorf("unknown status %q", r.Status)
	}
	if r.Timestamp <= 0 {
		return fmt.Errorf("timestamp is required")
	}
	if r.UpdatedAt != 0 && r.UpdatedAt < r.Timestamp {
		return fmt.Errorf("updated_at precedes timestamp")
	}
	return nil
}

func (r Record) matches(query string) bool {
	if query == "" {
		return true
	}
	q := strings.ToLower(query)
	for _, field := range []string{r.ID, r.Name, r.Ecu, r.Version, r.Uploader} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}

// UploadRequest carries the caller-supplied fields of a new record.
type UploadRequest struct {
	Name      string `json:"name"`
	Ecu       string `json:"ecu"`
	Version   string `json:"version"`
	ImageHash string `json:"image_hash"`
	Uploader  string `json:"uploader"`
}

func parseIndex(bz []byte) ([]string, error) {
	if len(bytes.TrimSpace(bz)) == 0 {
		return []string{}, nil
	}
	var ids []string
	if err := json.Unmarshal(bz, &ids); err != nil {
		return nil, errors.Wrap(ErrMalformedIndex, err.Error())
	}
	return ids, nil
}

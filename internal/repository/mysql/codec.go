package mysql

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"

	ierr "github.com/orderkit/orderkit/internal/errors"
	"github.com/orderkit/orderkit/internal/types"
)

// stringList stores a []string as a JSON column. The zero value scans from
// NULL and marshals to an empty array so JSON_CONTAINS stays usable.
type stringList []string

func (l stringList) Value() (driver.Value, error) {
	if len(l) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *stringList) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*l = nil
		return nil
	case []byte:
		if len(v) == 0 {
			*l = nil
			return nil
		}
		return json.Unmarshal(v, (*[]string)(l))
	case string:
		if v == "" {
			*l = nil
			return nil
		}
		return json.Unmarshal([]byte(v), (*[]string)(l))
	default:
		return errors.New("unsupported source type for string list column")
	}
}

// stringMap stores a map[string]string as a JSON column
type stringMap map[string]string

func (m stringMap) Value() (driver.Value, error) {
	if len(m) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(map[string]string(m))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (m *stringMap) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*m = nil
		return nil
	case []byte:
		if len(v) == 0 {
			*m = nil
			return nil
		}
		return json.Unmarshal(v, (*map[string]string)(m))
	case string:
		if v == "" {
			*m = nil
			return nil
		}
		return json.Unmarshal([]byte(v), (*map[string]string)(m))
	default:
		return errors.New("unsupported source type for string map column")
	}
}

// baseRow maps types.BaseModel onto shared audit columns
type baseRow struct {
	TenantID  string `gorm:"size:50;index"`
	Status    string `gorm:"size:20"`
	CreatedAt time.Time
	UpdatedAt time.Time
	CreatedBy string `gorm:"size:50"`
	UpdatedBy string `gorm:"size:50"`
}

func baseRowFromModel(m types.BaseModel) baseRow {
	return baseRow{
		TenantID:  m.TenantID,
		Status:    string(m.Status),
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
		CreatedBy: m.CreatedBy,
		UpdatedBy: m.UpdatedBy,
	}
}

func (r baseRow) toModel() types.BaseModel {
	return types.BaseModel{
		TenantID:  r.TenantID,
		Status:    types.Status(r.Status),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
		CreatedBy: r.CreatedBy,
		UpdatedBy: r.UpdatedBy,
	}
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	u := t
	return &u
}

func timeVal(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

func copyStringPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func notFound(err error, entity string, id string) (error, bool) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ierr.WithError(err).
			WithHintf("%s not found", entity).
			WithReportableDetails(map[string]any{"id": id}).
			Mark(ierr.ErrNotFound), true
	}
	return nil, false
}

func dbError(err error, hint string) error {
	return ierr.WithError(err).
		WithHint(hint).
		Mark(ierr.ErrDatabase)
}

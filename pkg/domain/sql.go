package domain

import (
	"database/sql/driver"
	"fmt"

	"github.com/google/uuid"
)

// sql.Scanner / driver.Valuer implementations so typed IDs scan straight out
// of database rows. Defined types do not inherit uuid.UUID's method set.

func scanUUID(dst *uuid.UUID, src any, kind string) error {
	switch v := src.(type) {
	case string:
		parsed, err := uuid.Parse(v)
		if err != nil {
			return fmt.Errorf("scan %s id: %w", kind, err)
		}
		*dst = parsed
	case []byte:
		parsed, err := uuid.ParseBytes(v)
		if err != nil {
			return fmt.Errorf("scan %s id: %w", kind, err)
		}
		*dst = parsed
	default:
		return fmt.Errorf("scan %s id: unsupported type %T", kind, src)
	}
	return nil
}

func (id *AgentID) Scan(src any) error    { return scanUUID((*uuid.UUID)(id), src, "agent") }
func (id *ProfileID) Scan(src any) error  { return scanUUID((*uuid.UUID)(id), src, "profile") }
func (id *MinistryID) Scan(src any) error { return scanUUID((*uuid.UUID)(id), src, "ministry") }
func (id *CorpsID) Scan(src any) error    { return scanUUID((*uuid.UUID)(id), src, "corps") }
func (id *GradeID) Scan(src any) error    { return scanUUID((*uuid.UUID)(id), src, "grade") }
func (id *PayScaleID) Scan(src any) error { return scanUUID((*uuid.UUID)(id), src, "pay scale") }
func (id *StepID) Scan(src any) error     { return scanUUID((*uuid.UUID)(id), src, "step") }
func (id *LockID) Scan(src any) error     { return scanUUID((*uuid.UUID)(id), src, "lock") }

func (id AgentID) Value() (driver.Value, error)    { return id.String(), nil }
func (id ProfileID) Value() (driver.Value, error)  { return id.String(), nil }
func (id MinistryID) Value() (driver.Value, error) { return id.String(), nil }
func (id CorpsID) Value() (driver.Value, error)    { return id.String(), nil }
func (id GradeID) Value() (driver.Value, error)    { return id.String(), nil }
func (id PayScaleID) Value() (driver.Value, error) { return id.String(), nil }
func (id StepID) Value() (driver.Value, error)     { return id.String(), nil }
func (id LockID) Value() (driver.Value, error)     { return id.String(), nil }

package chats

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"codeberg.org/docuchat/server/internal/domain"
)

type Repository struct {
	db *pgxpool.Pool
}

// user message and assistant answer persisted together
type Turn struct {
	SessionID string
	User      *domain.Message
	Assistant *domain.Message

	// optional; applied in the same transaction as the messages
	Retitle *TitleChange
}

// renames the session to To only while its title is still From, so a
// rename that landed during the turn wins. Applied reports the outcome.
type TitleChange struct {
	From    string
	To      string
	Applied bool
}

// jsonb column holding the sources an answer cited
type sourceList []domain.Source

func (sl sourceList) Value() (driver.Value, error) {
	if len(sl) == 0 {
		return "[]", nil
	}

	bytes, err := json.Marshal(sl)
	if err != nil {
		return nil, err
	}

	return string(bytes), nil
}

func (sl *sourceList) Scan(value any) error {
	switch v := value.(type) {
	case nil:
		*sl = sourceList{}
		return nil
	case []byte:
		return json.Unmarshal(v, sl)
	case string:
		return json.Unmarshal([]byte(v), sl)
	default:
		return fmt.Errorf("unsupported sources value %T", value)
	}
}

package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/lib/pq"
)

func isNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// isBindParameterMismatch matches the error transaction-mode poolers raise
// when an unnamed prepared statement is reused across sessions.
func isBindParameterMismatch(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "bind message supplies") && strings.Contains(msg, "prepared statement")
}

func isUnnamedPreparedStatementMissing(err error) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "26000" {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unnamed prepared statement does not exist") || strings.Contains(msg, "(26000)")
}

func isPreparedStatementConflict(err error) bool {
	return isBindParameterMismatch(err) || isUnnamedPreparedStatementMissing(err)
}

// inlineArgs rewrites $n placeholders into quoted literals so a query can be
// sent without the extended protocol.
func inlineArgs(query string, args []any) (string, error) {
	var out strings.Builder
	for i := 0; i < len(query); i++ {
		if query[i] != '$' {
			out.WriteByte(query[i])
			continue
		}
		j := i + 1
		for j < len(query) && query[j] >= '0' && query[j] <= '9' {
			j++
		}
		if j == i+1 {
			out.WriteByte(query[i])
			continue
		}
		idx, err := strconv.Atoi(query[i+1 : j])
		if err != nil || idx < 1 || idx > len(args) {
			return "", fmt.Errorf("placeholder %s out of range", query[i:j])
		}
		literal, err := sqlLiteral(args[idx-1])
		if err != nil {
			return "", err
		}
		out.WriteString(literal)
		i = j - 1
	}
	return out.String(), nil
}

func sqlLiteral(v any) (string, error) {
	switch value := v.(type) {
	case nil:
		return "NULL", nil
	case string:
		return quoteLiteral(value), nil
	case *string:
		if value == nil {
			return "NULL", nil
		}
		return quoteLiteral(*value), nil
	case int:
		return strconv.Itoa(value), nil
	case int64:
		return strconv.FormatInt(value, 10), nil
	case bool:
		return strconv.FormatBool(value), nil
	case time.Time:
		return quoteLiteral(value.UTC().Format(time.RFC3339Nano)), nil
	default:
		return "", fmt.Errorf("unsupported literal type %T", v)
	}
}

func quoteLiteral(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}

func optionalString(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func optionalTime(value time.Time) *time.Time {
	if value.IsZero() {
		return nil
	}
	utc := value.UTC()
	return &utc
}

func nullTimeToTime(value sql.NullTime) time.Time {
	if !value.Valid {
		return time.Time{}
	}
	return value.Time.UTC()
}

func marshalPayload(payload map[string]any) (string, error) {
	if len(payload) == 0 {
		return "{}", nil
	}
	raw, err := sonic.Marshal(payload)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

package db

import (
	"fmt"
	"reflect"
	"time"

	"gorm.io/gorm"

	"github.com/carematch/carematch/internal/events"
)

// ChangeFeed is a gorm plugin that publishes committed writes as change events.
//
// Callbacks run after gorm's own commit, so single statements are published
// once durable. Statements issued inside an explicit transaction are skipped:
// the code owning the transaction publishes after it commits.
type ChangeFeed struct {
	publisher events.Publisher
}

// NewChangeFeed creates the plugin
func NewChangeFeed(publisher events.Publisher) *ChangeFeed {
	return &ChangeFeed{publisher: publisher}
}

// Name implements gorm.Plugin
func (p *ChangeFeed) Name() string {
	return "carematch:changefeed"
}

// Initialize implements gorm.Plugin
func (p *ChangeFeed) Initialize(db *gorm.DB) error {
	const after = "gorm:commit_or_rollback_transaction"
	if err := db.Callback().Create().After(after).Register("changefeed:create", p.emit(events.ChangeInsert)); err != nil {
		return err
	}
	if err := db.Callback().Update().After(after).Register("changefeed:update", p.emit(events.ChangeUpdate)); err != nil {
		return err
	}
	return db.Callback().Delete().After(after).Register("changefeed:delete", p.emit(events.ChangeDelete))
}

func (p *ChangeFeed) emit(changeType events.ChangeType) func(*gorm.DB) {
	return func(db *gorm.DB) {
		if db.Error != nil || db.RowsAffected == 0 || db.Statement.Schema == nil {
			return
		}
		if _, inTx := db.Statement.ConnPool.(gorm.TxCommitter); inTx {
			return
		}
		for _, row := range rowsOf(db, changeType == events.ChangeInsert) {
			p.publisher.Publish(events.Change{
				Table: db.Statement.Table,
				Type:  changeType,
				Row:   row,
			})
		}
	}
}

// rowsOf extracts the affected rows. Zero values are only trusted on insert: an
// update or delete issued through an empty model would otherwise report bogus columns.
func rowsOf(db *gorm.DB, withZero bool) []map[string]string {
	rv := reflect.Indirect(db.Statement.ReflectValue)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		rows := make([]map[string]string, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			rows = append(rows, rowValues(db, reflect.Indirect(rv.Index(i)), withZero))
		}
		return rows
	case reflect.Struct:
		return []map[string]string{rowValues(db, rv, withZero)}
	default:
		return []map[string]string{rowValues(db, reflect.Value{}, withZero)}
	}
}

func rowValues(db *gorm.DB, rv reflect.Value, withZero bool) map[string]string {
	row := make(map[string]string)
	if rv.IsValid() && rv.Kind() == reflect.Struct {
		for _, field := range db.Statement.Schema.Fields {
			if field.DBName == "" {
				continue
			}
			v, zero := field.ValueOf(db.Statement.Context, rv)
			if zero && !withZero {
				continue
			}
			row[field.DBName] = stringify(v)
		}
	}
	// Updates(map) carries the new values in Dest rather than in the model
	if m, ok := db.Statement.Dest.(map[string]interface{}); ok {
		for column, v := range m {
			row[column] = stringify(v)
		}
	}
	return row
}

func stringify(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case *string:
		if t == nil {
			return ""
		}
		return *t
	case time.Time:
		return t.UTC().Format(time.RFC3339Nano)
	case *time.Time:
		if t == nil {
			return ""
		}
		return t.UTC().Format(time.RFC3339Nano)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(v)
	}
}

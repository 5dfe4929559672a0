// Package pgxcasbin persists casbin policies in a Postgres table through pgx.
package pgxcasbin

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/casbin/casbin/v3/model"
	"github.com/casbin/casbin/v3/persist"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/lo"
)

// fields is the number of value columns (v0..v5).
const fields = 6

var (
	ErrRuleTooLong = errors.New("pgxcasbin: rule has more than 6 fields")
	ErrEmptyPtype  = errors.New("pgxcasbin: ptype is empty")
)

var (
	_ persist.Adapter      = (*Adapter)(nil)
	_ persist.BatchAdapter = (*Adapter)(nil)
)

// Commander is the subset of *pgxpool.Pool the adapter uses.
type Commander interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Adapter implements persist.Adapter over a table with columns
// (ptype, v0..v5) and a unique constraint across all of them.
type Adapter struct {
	db    Commander
	table string

	insertSQL string
	deleteSQL string
	selectSQL string
}

type Option func(*Adapter)

// WithTableName overrides the default table, access_policies.
func WithTableName(name string) Option {
	return func(a *Adapter) { a.table = lo.SnakeCase(name) }
}

func NewAdapter(db Commander, opts ...Option) *Adapter {
	a := &Adapter{db: db, table: "access_policies"}
	for _, opt := range opts {
		opt(a)
	}

	cols := strings.Join(lo.Times(fields, func(i int) string { return "v" + strconv.Itoa(i) }), ", ")
	params := strings.Join(lo.Times(fields, func(i int) string { return "$" + strconv.Itoa(i+2) }), ", ")
	match := strings.Join(lo.Times(fields, func(i int) string {
		return "v" + strconv.Itoa(i) + " = $" + strconv.Itoa(i+2)
	}), " AND ")

	a.insertSQL = fmt.Sprintf("INSERT INTO %s (ptype, %s) VALUES ($1, %s) ON CONFLICT DO NOTHING", a.table, cols, params)
	a.deleteSQL = fmt.Sprintf("DELETE FROM %s WHERE ptype = $1 AND %s", a.table, match)
	a.selectSQL = fmt.Sprintf("SELECT ptype, %s FROM %s ORDER BY id", cols, a.table)

	return a
}

func (a *Adapter) LoadPolicy(m model.Model) error {
	return a.LoadPolicyCtx(context.Background(), m)
}

func (a *Adapter) LoadPolicyCtx(ctx context.Context, m model.Model) error {
	rows, err := a.db.Query(ctx, a.selectSQL)
	if err != nil {
		return fmt.Errorf("pgxcasbin: select policies: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		line := make([]string, fields+1)
		dst := lo.Map(line, func(_ string, i int) any { return &line[i] })
		if err := rows.Scan(dst...); err != nil {
			return fmt.Errorf("pgxcasbin: scan policy: %w", err)
		}
		if err := persist.LoadPolicyArray(trimTrailingEmpty(line), m); err != nil {
			return err
		}
	}

	return rows.Err()
}

// SavePolicy replaces the table content with every p and g rule of m.
func (a *Adapter) SavePolicy(m model.Model) (err error) {
	ctx := context.Background()

	tx, err := a.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("pgxcasbin: begin: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			err = errors.Join(err, rbErr)
		}
	}()

	if _, err = tx.Exec(ctx, "DELETE FROM "+a.table); err != nil {
		return fmt.Errorf("pgxcasbin: clear policies: %w", err)
	}

	batch := &pgx.Batch{}
	for _, sec := range []string{"p", "g"} {
		for ptype, ast := range m[sec] {
			for _, rule := range ast.Policy {
				args, err := ruleArgs(ptype, rule)
				if err != nil {
					return err
				}
				batch.Queue(a.insertSQL, args...)
			}
		}
	}

	if err = tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("pgxcasbin: insert policies: %w", err)
	}

	return tx.Commit(ctx)
}

func (a *Adapter) AddPolicy(_, ptype string, rule []string) error {
	return a.AddPolicies("", ptype, [][]string{rule})
}

func (a *Adapter) AddPolicies(_, ptype string, rules [][]string) error {
	return a.exec(a.insertSQL, ptype, rules)
}

func (a *Adapter) RemovePolicy(_, ptype string, rule []string) error {
	return a.RemovePolicies("", ptype, [][]string{rule})
}

func (a *Adapter) RemovePolicies(_, ptype string, rules [][]string) error {
	return a.exec(a.deleteSQL, ptype, rules)
}

// RemoveFilteredPolicy deletes rules of ptype whose fields starting at
// fieldIndex equal fieldValues. Empty values match anything.
func (a *Adapter) RemoveFilteredPolicy(_, ptype string, fieldIndex int, fieldValues ...string) error {
	if ptype == "" {
		return ErrEmptyPtype
	}
	if fieldIndex+len(fieldValues) > fields {
		return ErrRuleTooLong
	}

	query := "DELETE FROM " + a.table + " WHERE ptype = $1"
	args := []any{ptype}
	for i, v := range fieldValues {
		if v == "" {
			continue
		}
		args = append(args, v)
		query += " AND v" + strconv.Itoa(fieldIndex+i) + " = $" + strconv.Itoa(len(args))
	}

	if _, err := a.db.Exec(context.Background(), query, args...); err != nil {
		return fmt.Errorf("pgxcasbin: delete filtered: %w", err)
	}

	return nil
}

func (a *Adapter) exec(query, ptype string, rules [][]string) error {
	ctx := context.Background()

	for _, rule := range rules {
		args, err := ruleArgs(ptype, rule)
		if err != nil {
			return err
		}
		if _, err := a.db.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("pgxcasbin: %w", err)
		}
	}

	return nil
}

func ruleArgs(ptype string, rule []string) ([]any, error) {
	if ptype == "" {
		return nil, ErrEmptyPtype
	}
	if len(rule) > fields {
		return nil, ErrRuleTooLong
	}

	args := make([]any, fields+1)
	args[0] = ptype
	for i := range fields {
		args[i+1] = ""
		if i < len(rule) {
			args[i+1] = rule[i]
		}
	}

	return args, nil
}

func trimTrailingEmpty(line []string) []string {
	last := len(line) - 1
	for last >= 0 && line[last] == "" {
		last--
	}
	return line[:last+1]
}

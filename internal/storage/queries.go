package storage

import (
	"context"
	"database/sql"
	"strings"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

func (q *Queries) exec(ctx context.Context, query string, args ...interface{}) (int64, error) {
	res, err := q.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const createGoal = `INSERT INTO savings_goals (id, user_id, name, target_amount_cents, current_amount_cents, start_date, target_date)
VALUES (?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateGoal(ctx context.Context, g SavingsGoal) error {
	_, err := q.db.ExecContext(ctx, createGoal,
		g.ID, g.UserID, g.Name, g.TargetAmountCents, g.CurrentAmountCents, g.StartDate, g.TargetDate)
	return err
}

const goalColumns = `id, user_id, name, target_amount_cents, current_amount_cents, start_date, target_date`

func scanGoal(sc interface{ Scan(...interface{}) error }) (SavingsGoal, error) {
	var g SavingsGoal
	err := sc.Scan(&g.ID, &g.UserID, &g.Name, &g.TargetAmountCents, &g.CurrentAmountCents, &g.StartDate, &g.TargetDate)
	return g, err
}

const listGoalsByUser = `SELECT ` + goalColumns + ` FROM savings_goals WHERE user_id = ? ORDER BY rowid`

func (q *Queries) ListGoalsByUser(ctx context.Context, userID string) ([]SavingsGoal, error) {
	rows, err := q.db.QueryContext(ctx, listGoalsByUser, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []SavingsGoal{}
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, g)
	}
	return items, rows.Err()
}

const getGoal = `SELECT ` + goalColumns + ` FROM savings_goals WHERE id = ? AND user_id = ?`

func (q *Queries) GetGoal(ctx context.Context, id, userID string) (SavingsGoal, error) {
	return scanGoal(q.db.QueryRowContext(ctx, getGoal, id, userID))
}

const updateGoal = `UPDATE savings_goals SET name = ?, target_amount_cents = ?, start_date = ?, target_date = ?
WHERE id = ? AND user_id = ?`

func (q *Queries) UpdateGoal(ctx context.Context, g SavingsGoal) (int64, error) {
	return q.exec(ctx, updateGoal, g.Name, g.TargetAmountCents, g.StartDate, g.TargetDate, g.ID, g.UserID)
}

const deleteGoal = `DELETE FROM savings_goals WHERE id = ? AND user_id = ?`

func (q *Queries) DeleteGoal(ctx context.Context, id, userID string) (int64, error) {
	return q.exec(ctx, deleteGoal, id, userID)
}

const incrementGoalAmount = `UPDATE savings_goals SET current_amount_cents = current_amount_cents + ?
WHERE id = ? AND user_id = ?`

func (q *Queries) IncrementGoalAmount(ctx context.Context, id, userID string, cents int64) (int64, error) {
	return q.exec(ctx, incrementGoalAmount, cents, id, userID)
}

const createCategory = `INSERT INTO expense_categories (id, user_id, name, spend_limit_cents, spend_total_cents, deleted)
VALUES (?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateCategory(ctx context.Context, c ExpenseCategory) error {
	_, err := q.db.ExecContext(ctx, createCategory,
		c.ID, c.UserID, c.Name, c.SpendLimitCents, c.SpendTotalCents, c.Deleted)
	return err
}

// ListCategoriesParams holds the optional filters of ListCategories.
type ListCategoriesParams struct {
	ID             string
	Owners         []string
	IncludeDeleted bool
}

func (q *Queries) ListCategories(ctx context.Context, arg ListCategoriesParams) ([]ExpenseCategory, error) {
	var (
		where []string
		args  []interface{}
	)
	if arg.ID != "" {
		where = append(where, "id = ?")
		args = append(args, arg.ID)
	}
	if len(arg.Owners) > 0 {
		where = append(where, "user_id IN ("+placeholders(len(arg.Owners))+")")
		for _, o := range arg.Owners {
			args = append(args, o)
		}
	}
	if !arg.IncludeDeleted {
		where = append(where, "deleted = 0")
	}
	query := `SELECT id, user_id, name, spend_limit_cents, spend_total_cents, deleted FROM expense_categories` +
		whereClause(where) + ` ORDER BY rowid`

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []ExpenseCategory{}
	for rows.Next() {
		var c ExpenseCategory
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.SpendLimitCents, &c.SpendTotalCents, &c.Deleted); err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

const updateCategory = `UPDATE expense_categories SET name = ?, spend_limit_cents = ?
WHERE id = ? AND user_id = ? AND deleted = 0`

func (q *Queries) UpdateCategory(ctx context.Context, c ExpenseCategory) (int64, error) {
	return q.exec(ctx, updateCategory, c.Name, c.SpendLimitCents, c.ID, c.UserID)
}

const incrementCategorySpend = `UPDATE expense_categories SET spend_total_cents = spend_total_cents + ?
WHERE id = ? AND user_id = ?`

func (q *Queries) IncrementCategorySpend(ctx context.Context, id, userID string, cents int64) (int64, error) {
	return q.exec(ctx, incrementCategorySpend, cents, id, userID)
}

const markCategoryDeleted = `UPDATE expense_categories SET deleted = 1 WHERE id = ? AND user_id = ? AND deleted = 0`

func (q *Queries) MarkCategoryDeleted(ctx context.Context, id, userID string) (int64, error) {
	return q.exec(ctx, markCategoryDeleted, id, userID)
}

const createTransaction = `INSERT INTO ledger_transactions (id, user_id, kind, amount_cents, occurred_at, description, category_id, goal_id)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateTransaction(ctx context.Context, t LedgerTransaction) error {
	_, err := q.db.ExecContext(ctx, createTransaction,
		t.ID, t.UserID, t.Kind, t.AmountCents, t.OccurredAt, t.Description, t.CategoryID, t.GoalID)
	return err
}

// ListTransactionsParams holds the optional filters of ListTransactions.
// Zero values are ignored; From and To are inclusive.
type ListTransactionsParams struct {
	UserID     string
	Kind       string
	CategoryID string
	GoalID     string
	From       int64
	To         int64
	Limit      int
}

func (q *Queries) ListTransactions(ctx context.Context, arg ListTransactionsParams) ([]LedgerTransaction, error) {
	var (
		where []string
		args  []interface{}
	)
	add := func(cond string, v interface{}) {
		where = append(where, cond)
		args = append(args, v)
	}
	if arg.UserID != "" {
		add("user_id = ?", arg.UserID)
	}
	if arg.Kind != "" {
		add("kind = ?", arg.Kind)
	}
	if arg.CategoryID != "" {
		add("category_id = ?", arg.CategoryID)
	}
	if arg.GoalID != "" {
		add("goal_id = ?", arg.GoalID)
	}
	if arg.From != 0 {
		add("occurred_at >= ?", arg.From)
	}
	if arg.To != 0 {
		add("occurred_at <= ?", arg.To)
	}
	query := `SELECT id, user_id, kind, amount_cents, occurred_at, description, category_id, goal_id
FROM ledger_transactions` + whereClause(where) + ` ORDER BY occurred_at DESC, rowid`
	if arg.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, arg.Limit)
	}

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []LedgerTransaction{}
	for rows.Next() {
		var t LedgerTransaction
		if err := rows.Scan(&t.ID, &t.UserID, &t.Kind, &t.AmountCents, &t.OccurredAt, &t.Description, &t.CategoryID, &t.GoalID); err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, rows.Err()
}

const createProfile = `INSERT INTO financial_profiles (user_id, salary_cents, salary_currency, balance_target_cents, spend_limit_cents)
VALUES (?, ?, ?, ?, ?) ON CONFLICT(user_id) DO NOTHING`

func (q *Queries) CreateProfile(ctx context.Context, p FinancialProfile) (int64, error) {
	return q.exec(ctx, createProfile, p.UserID, p.SalaryCents, p.SalaryCurrency, p.BalanceTargetCents, p.SpendLimitCents)
}

const getProfile = `SELECT user_id, salary_cents, salary_currency, balance_target_cents, spend_limit_cents
FROM financial_profiles WHERE user_id = ?`

func (q *Queries) GetProfile(ctx context.Context, userID string) (FinancialProfile, error) {
	var p FinancialProfile
	err := q.db.QueryRowContext(ctx, getProfile, userID).
		Scan(&p.UserID, &p.SalaryCents, &p.SalaryCurrency, &p.BalanceTargetCents, &p.SpendLimitCents)
	return p, err
}

const updateProfile = `UPDATE financial_profiles
SET salary_cents = ?, salary_currency = ?, balance_target_cents = ?, spend_limit_cents = ?, updated_at = CURRENT_TIMESTAMP
WHERE user_id = ?`

func (q *Queries) UpdateProfile(ctx context.Context, p FinancialProfile) (int64, error) {
	return q.exec(ctx, updateProfile, p.SalaryCents, p.SalaryCurrency, p.BalanceTargetCents, p.SpendLimitCents, p.UserID)
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func whereClause(conds []string) string {
	if len(conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conds, " AND ")
}

// Package archive mirrors committed transfers into Postgres for long-term
// retention. It is an external collaborator of the core: the in-memory
// ledger never depends on it, and a failed archive write never unwinds a
// committed transfer.
package archive

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/Elliot-Adinortey/ErpBankingSystem-sub001/internal/ledger"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation error")
)

type Archive struct {
	db *pgxpool.Pool
}

func New(db *pgxpool.Pool) *Archive { return &Archive{db: db} }

// Leg is one archived side of a transfer.
type Leg struct {
	TransferID   string
	IsOutgoing   bool
	AccountID    uuid.UUID
	AccountLabel string
	Amount       decimal.Decimal
	Memo         string
	PostedAt     time.Time
}

// LegsFromReceipt builds both archive legs for a committed transfer.
func LegsFromReceipt(r *ledger.Receipt, from, to *ledger.Account, memo string) (out, in Leg) {
	out = Leg{
		TransferID:   r.TransferID,
		IsOutgoing:   true,
		AccountID:    from.ID(),
		AccountLabel: from.DisplayName(),
		Amount:       r.Amount.Neg(),
		Memo:         memo,
		PostedAt:     r.Timestamp,
	}
	in = Leg{
		TransferID:   r.TransferID,
		IsOutgoing:   false,
		AccountID:    to.ID(),
		AccountLabel: to.DisplayName(),
		Amount:       r.Amount,
		Memo:         memo,
		PostedAt:     r.Timestamp,
	}
	return out, in
}

// SaveTransfer writes both legs in one transaction. Re-archiving the same
// transfer is a no-op thanks to the (transfer_id, is_outgoing) constraint.
func (a *Archive) SaveTransfer(ctx context.Context, out, in Leg) error {
	if out.TransferID == "" || out.TransferID != in.TransferID {
		return fmt.Errorf("%w: legs must share one transfer id", ErrValidation)
	}
	if !out.IsOutgoing || in.IsOutgoing {
		return fmt.Errorf("%w: need one outgoing and one incoming leg", ErrValidation)
	}
	if !out.Amount.Abs().Equal(in.Amount.Abs()) {
		return fmt.Errorf("%w: leg amounts must match", ErrValidation)
	}

	tx, err := a.db.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.ReadCommitted,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, leg := range []Leg{out, in} {
		_, err = tx.Exec(ctx,
			`INSERT INTO transfer_legs(
				leg_id, transfer_id, is_outgoing, account_id, account_label, amount, memo, posted_at
			) VALUES($1,$2,$3,$4,$5,$6::numeric,$7,$8)
			ON CONFLICT (transfer_id, is_outgoing) DO NOTHING`,
			uuid.New(), leg.TransferID, leg.IsOutgoing, leg.AccountID,
			leg.AccountLabel, leg.Amount.String(), leg.Memo, leg.PostedAt,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// TransferByID reads both legs of an archived transfer.
func (a *Archive) TransferByID(ctx context.Context, transferID string) (out, in Leg, err error) {
	rows, err := a.db.Query(ctx,
		`SELECT transfer_id, is_outgoing, account_id, account_label, amount::text, memo, posted_at
		   FROM transfer_legs
		  WHERE transfer_id = $1
		  ORDER BY is_outgoing DESC`,
		transferID,
	)
	if err != nil {
		return Leg{}, Leg{}, err
	}
	defer rows.Close()

	var legs []Leg
	for rows.Next() {
		leg, err := scanLeg(rows)
		if err != nil {
			return Leg{}, Leg{}, err
		}
		legs = append(legs, leg)
	}
	if err := rows.Err(); err != nil {
		return Leg{}, Leg{}, err
	}
	if len(legs) != 2 {
		return Leg{}, Leg{}, fmt.Errorf("%w: transfer %s", ErrNotFound, transferID)
	}
	return legs[0], legs[1], nil
}

// AccountLegs lists the newest archived legs for one account.
func (a *Archive) AccountLegs(ctx context.Context, accountID uuid.UUID, limit int) ([]Leg, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := a.db.Query(ctx,
		`SELECT transfer_id, is_outgoing, account_id, account_label, amount::text, memo, posted_at
		   FROM transfer_legs
		  WHERE account_id = $1
		  ORDER BY posted_at DESC
		  LIMIT $2`,
		accountID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var legs []Leg
	for rows.Next() {
		leg, err := scanLeg(rows)
		if err != nil {
			return nil, err
		}
		legs = append(legs, leg)
	}
	return legs, rows.Err()
}

func scanLeg(rows pgx.Rows) (Leg, error) {
	var (
		leg       Leg
		amountStr string
	)
	if err := rows.Scan(
		&leg.TransferID, &leg.IsOutgoing, &leg.AccountID,
		&leg.AccountLabel, &amountStr, &leg.Memo, &leg.PostedAt,
	); err != nil {
		return Leg{}, err
	}
	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return Leg{}, fmt.Errorf("parse archived amount %q: %w", amountStr, err)
	}
	leg.Amount = amount
	return leg, nil
}

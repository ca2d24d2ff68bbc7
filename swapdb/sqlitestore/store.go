// Package sqlitestore is the durable swapdb.Store implementation: a
// cgo-free SQLite database (modernc.org/sqlite) with schema migrations run
// through golang-migrate at open time.
package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/lightninglabs/ln-liquid-swap/elements"
	"github.com/lightninglabs/ln-liquid-swap/swap"
	"github.com/lightninglabs/ln-liquid-swap/swapdb"
)

// Store is the sqlite-backed swapdb.Store. All writes are serialized by mu
// so that a single-writer lock satisfies the "no torn writes" requirement
// even though database/sql itself already serializes SQLite access.
type Store struct {
	mu sync.Mutex
	db *sql.DB
}

// Config configures Open.
type Config struct {
	// DSN is the modernc.org/sqlite data source name, e.g. a file path or
	// ":memory:".
	DSN string
}

// Open opens (creating if necessary) the sqlite database at cfg.DSN and
// runs any pending migrations.
func Open(cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("dsn is required")
	}

	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite only tolerates a single writer; serialize connection use so
	// concurrent callers don't trip "database is locked".
	db.SetMaxOpenConns(1)

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

func runMigrations(db *sql.DB) error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("load embedded migrations: %w", err)
	}

	target, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("wrap sqlite instance for migrate: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", target)
	if err != nil {
		return fmt.Errorf("build migrator: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) InsertQuote(ctx context.Context, q *swap.Quote) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var swapID sql.NullString
	if q.SwapID != nil {
		swapID = sql.NullString{String: q.SwapID.String(), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO quotes (
			quote_id, offer_id, direction, asset_id, asset_amount,
			min_funding_confs, total_price_msat, swap_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		q.QuoteID.String(), hex.EncodeToString(q.OfferID[:]), q.Direction.String(),
		q.AssetID.String(), q.AssetAmount, q.MinFundingConfs, q.TotalPriceMsat, swapID,
	)
	if err != nil {
		return fmt.Errorf("insert quote: %w", err)
	}
	return nil
}

func (s *Store) GetQuote(ctx context.Context, id uuid.UUID) (*swap.Quote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT quote_id, offer_id, direction, asset_id, asset_amount,
		       min_funding_confs, total_price_msat, swap_id
		FROM quotes WHERE quote_id = ?
	`, id.String())

	return scanQuote(row)
}

func scanQuote(row *sql.Row) (*swap.Quote, error) {
	var (
		quoteIDStr, offerIDHex, directionStr, assetIDStr string
		assetAmount, totalPriceMsat                      uint64
		minFundingConfs                                  uint32
		swapIDStr                                        sql.NullString
	)
	err := row.Scan(
		&quoteIDStr, &offerIDHex, &directionStr, &assetIDStr,
		&assetAmount, &minFundingConfs, &totalPriceMsat, &swapIDStr,
	)
	if err == sql.ErrNoRows {
		return nil, swapdb.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan quote: %w", err)
	}

	quoteID, err := uuid.Parse(quoteIDStr)
	if err != nil {
		return nil, fmt.Errorf("parse quote_id: %w", err)
	}
	offerIDBytes, err := hex.DecodeString(offerIDHex)
	if err != nil || len(offerIDBytes) != 32 {
		return nil, fmt.Errorf("parse offer_id: invalid hex")
	}
	direction, err := swap.ParseDirection(directionStr)
	if err != nil {
		return nil, err
	}
	assetID, err := elements.AssetIDFromHex(assetIDStr)
	if err != nil {
		return nil, fmt.Errorf("parse asset_id: %w", err)
	}

	q := &swap.Quote{
		QuoteID:         quoteID,
		Direction:       direction,
		AssetID:         assetID,
		AssetAmount:     assetAmount,
		MinFundingConfs: minFundingConfs,
		TotalPriceMsat:  totalPriceMsat,
	}
	copy(q.OfferID[:], offerIDBytes)
	if swapIDStr.Valid {
		swapID, err := uuid.Parse(swapIDStr.String)
		if err != nil {
			return nil, fmt.Errorf("parse swap_id: %w", err)
		}
		q.SwapID = &swapID
	}
	return q, nil
}

func (s *Store) SetQuoteSwapID(ctx context.Context, quoteID, swapID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var existing sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT swap_id FROM quotes WHERE quote_id = ?`, quoteID.String(),
	).Scan(&existing)
	if err == sql.ErrNoRows {
		return swapdb.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("look up quote: %w", err)
	}
	if existing.Valid && existing.String != "" {
		if existing.String != swapID.String() {
			return fmt.Errorf("quote %s already linked to a different swap", quoteID)
		}
		return nil
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE quotes SET swap_id = ? WHERE quote_id = ?`, swapID.String(), quoteID.String(),
	)
	if err != nil {
		return fmt.Errorf("link quote to swap: %w", err)
	}
	return nil
}

func (s *Store) InsertSwap(ctx context.Context, sw *swap.Swap) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lnPreimageHex := ""
	if sw.LNPreimage != nil {
		lnPreimageHex = hex.EncodeToString(sw.LNPreimage[:])
	}
	claimTxIDHex := ""
	if sw.ClaimTxID != nil {
		claimTxIDHex = hex.EncodeToString(sw.ClaimTxID[:])
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO swaps (
			swap_id, quote_id, direction, bolt11_invoice, payment_hash,
			asset_id, asset_amount, total_price_msat, buyer_liquid_address,
			fee_subsidy_sats, refund_lock_height, p2wsh_address,
			witness_script_hex, funding_txid, asset_vout, lbtc_vout,
			min_funding_confs, ln_payment_id, ln_preimage_hex, claim_txid,
			status, refund_attempt_count
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		sw.SwapID.String(), sw.QuoteID.String(), sw.Direction.String(), sw.Bolt11Invoice,
		hex.EncodeToString(sw.PaymentHash[:]), sw.AssetID.String(), sw.AssetAmount,
		sw.TotalPriceMsat, sw.BuyerLiquidAddress, sw.FeeSubsidySats, sw.RefundLockHeight,
		sw.P2WSHAddress, hex.EncodeToString(sw.WitnessScript), hex.EncodeToString(sw.FundingTxID[:]),
		sw.AssetVout, sw.LBTCVout, sw.MinFundingConfs, sw.LNPaymentID, lnPreimageHex,
		claimTxIDHex, sw.Status.String(), sw.RefundAttemptCount,
	)
	if err != nil {
		return fmt.Errorf("insert swap: %w", err)
	}
	return nil
}

func (s *Store) GetSwap(ctx context.Context, id uuid.UUID) (*swap.Swap, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getSwapLocked(ctx, id)
}

func (s *Store) getSwapLocked(ctx context.Context, id uuid.UUID) (*swap.Swap, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT swap_id, quote_id, direction, bolt11_invoice, payment_hash,
		       asset_id, asset_amount, total_price_msat, buyer_liquid_address,
		       fee_subsidy_sats, refund_lock_height, p2wsh_address,
		       witness_script_hex, funding_txid, asset_vout, lbtc_vout,
		       min_funding_confs, ln_payment_id, ln_preimage_hex, claim_txid,
		       status, refund_attempt_count
		FROM swaps WHERE swap_id = ?
	`, id.String())
	return scanSwap(row)
}

func scanSwap(row *sql.Row) (*swap.Swap, error) {
	var (
		swapIDStr, quoteIDStr, directionStr, bolt11, paymentHashHex string
		assetIDStr, buyerAddr, p2wshAddr, witnessScriptHex          string
		fundingTxIDHex, lnPaymentID, lnPreimageHex, claimTxIDHex    string
		statusStr                                                   string
		assetAmount, totalPriceMsat, feeSubsidySats                 uint64
		refundLockHeight, assetVout, lbtcVout, minFundingConfs      uint32
		refundAttemptCount                                          uint32
	)
	err := row.Scan(
		&swapIDStr, &quoteIDStr, &directionStr, &bolt11, &paymentHashHex,
		&assetIDStr, &assetAmount, &totalPriceMsat, &buyerAddr,
		&feeSubsidySats, &refundLockHeight, &p2wshAddr,
		&witnessScriptHex, &fundingTxIDHex, &assetVout, &lbtcVout,
		&minFundingConfs, &lnPaymentID, &lnPreimageHex, &claimTxIDHex,
		&statusStr, &refundAttemptCount,
	)
	if err == sql.ErrNoRows {
		return nil, swapdb.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan swap: %w", err)
	}

	swapID, err := uuid.Parse(swapIDStr)
	if err != nil {
		return nil, fmt.Errorf("parse swap_id: %w", err)
	}
	quoteID, err := uuid.Parse(quoteIDStr)
	if err != nil {
		return nil, fmt.Errorf("parse quote_id: %w", err)
	}
	direction, err := swap.ParseDirection(directionStr)
	if err != nil {
		return nil, err
	}
	status, err := swap.ParseSwapStatus(statusStr)
	if err != nil {
		return nil, err
	}
	assetID, err := elements.AssetIDFromHex(assetIDStr)
	if err != nil {
		return nil, fmt.Errorf("parse asset_id: %w", err)
	}
	paymentHashBytes, err := hex.DecodeString(paymentHashHex)
	if err != nil || len(paymentHashBytes) != 32 {
		return nil, fmt.Errorf("parse payment_hash: invalid hex")
	}
	witnessScript, err := hex.DecodeString(witnessScriptHex)
	if err != nil {
		return nil, fmt.Errorf("parse witness_script: %w", err)
	}
	fundingTxIDBytes, err := hex.DecodeString(fundingTxIDHex)
	if err != nil || len(fundingTxIDBytes) != 32 {
		return nil, fmt.Errorf("parse funding_txid: invalid hex")
	}

	sw := &swap.Swap{
		SwapID:             swapID,
		QuoteID:            quoteID,
		Direction:          direction,
		Bolt11Invoice:      bolt11,
		AssetID:            assetID,
		AssetAmount:        assetAmount,
		TotalPriceMsat:     totalPriceMsat,
		BuyerLiquidAddress: buyerAddr,
		FeeSubsidySats:     feeSubsidySats,
		RefundLockHeight:   refundLockHeight,
		P2WSHAddress:       p2wshAddr,
		WitnessScript:      witnessScript,
		AssetVout:          assetVout,
		LBTCVout:           lbtcVout,
		MinFundingConfs:    minFundingConfs,
		LNPaymentID:        lnPaymentID,
		Status:             status,
		RefundAttemptCount: refundAttemptCount,
	}
	copy(sw.PaymentHash[:], paymentHashBytes)
	copy(sw.FundingTxID[:], fundingTxIDBytes)

	if lnPreimageHex != "" {
		b, err := hex.DecodeString(lnPreimageHex)
		if err != nil || len(b) != 32 {
			return nil, fmt.Errorf("parse ln_preimage_hex: invalid hex")
		}
		var preimage [32]byte
		copy(preimage[:], b)
		sw.LNPreimage = &preimage
	}
	if claimTxIDHex != "" {
		b, err := hex.DecodeString(claimTxIDHex)
		if err != nil || len(b) != 32 {
			return nil, fmt.Errorf("parse claim_txid: invalid hex")
		}
		var txid [32]byte
		copy(txid[:], b)
		sw.ClaimTxID = &txid
	}

	return sw, nil
}

func (s *Store) UpdateSwapStatus(ctx context.Context, swapID uuid.UUID, status swap.SwapStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE swaps SET status = ? WHERE swap_id = ?`, status.String(), swapID.String(),
	)
	if err != nil {
		return fmt.Errorf("update swap status: %w", err)
	}
	return checkRowAffected(res, swapID)
}

func (s *Store) UpsertSwapPayment(ctx context.Context, swapID uuid.UUID, lnPaymentID string, preimage [32]byte, status swap.SwapStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE swaps SET ln_payment_id = ?, ln_preimage_hex = ?, status = ? WHERE swap_id = ?`,
		lnPaymentID, hex.EncodeToString(preimage[:]), status.String(), swapID.String(),
	)
	if err != nil {
		return fmt.Errorf("upsert swap payment: %w", err)
	}
	return checkRowAffected(res, swapID)
}

func (s *Store) UpsertSwapClaim(ctx context.Context, swapID uuid.UUID, claimTxID [32]byte, status swap.SwapStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE swaps SET claim_txid = ?, status = ? WHERE swap_id = ?`,
		hex.EncodeToString(claimTxID[:]), status.String(), swapID.String(),
	)
	if err != nil {
		return fmt.Errorf("upsert swap claim: %w", err)
	}
	return checkRowAffected(res, swapID)
}

func (s *Store) ListSwapsByStatus(ctx context.Context, statuses ...swap.SwapStatus) ([]*swap.Swap, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	placeholders := make([]any, len(statuses))
	query := `SELECT swap_id FROM swaps WHERE status IN (`
	for i, st := range statuses {
		if i > 0 {
			query += ", "
		}
		query += "?"
		placeholders[i] = st.String()
	}
	query += ")"

	rows, err := s.db.QueryContext(ctx, query, placeholders...)
	if err != nil {
		return nil, fmt.Errorf("list swaps by status: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var idStr string
		if err := rows.Scan(&idStr); err != nil {
			return nil, fmt.Errorf("scan swap_id: %w", err)
		}
		id, err := uuid.Parse(idStr)
		if err != nil {
			return nil, fmt.Errorf("parse swap_id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	swaps := make([]*swap.Swap, 0, len(ids))
	for _, id := range ids {
		sw, err := s.getSwapLocked(ctx, id)
		if err != nil {
			return nil, err
		}
		swaps = append(swaps, sw)
	}
	return swaps, nil
}

func (s *Store) IncrementRefundAttempt(ctx context.Context, swapID uuid.UUID) (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE swaps SET refund_attempt_count = refund_attempt_count + 1 WHERE swap_id = ?`,
		swapID.String(),
	)
	if err != nil {
		return 0, fmt.Errorf("increment refund attempt: %w", err)
	}
	if err := checkRowAffected(res, swapID); err != nil {
		return 0, err
	}

	var count uint32
	err = s.db.QueryRowContext(ctx,
		`SELECT refund_attempt_count FROM swaps WHERE swap_id = ?`, swapID.String(),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("read refund attempt count: %w", err)
	}
	return count, nil
}

func checkRowAffected(res sql.Result, swapID uuid.UUID) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if n == 0 {
		return swapdb.ErrNotFound
	}
	return nil
}

var _ swapdb.Store = (*Store)(nil)

package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/barstock/backend/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultBatchSize is the number of write intents flushed per BatchWrite call
const DefaultBatchSize = 500

// CandidateMatcher finds the catalog product an import candidate refers to
type CandidateMatcher interface {
	FindBestMatch(ctx context.Context, candidate *domain.ImportCandidate, catalog []domain.CatalogProduct) (*domain.MatchResult, error)
}

// ImportRecorder receives run telemetry
type ImportRecorder interface {
	RowProcessed(action domain.ImportAction)
	FlushCompleted(err error)
	RunFinished(status domain.RunStatus, duration time.Duration)
}

// ReconciliationConfig holds configuration for the reconciliation service
type ReconciliationConfig struct {
	BatchSize           int
	DedupeWithinRun     bool
	DefaultUnit         string
	DefaultMinThreshold float64
	UpdatedBy           string

	Logger   *zap.Logger
	Recorder ImportRecorder
	Reports  domain.ReportRepository
	Clock    func() time.Time
	NewID    func() string
}

// ImportOptions tune a single run
type ImportOptions struct {
	Source string
	DryRun bool
}

// ReconciliationService turns source rows into catalog updates and creations
type ReconciliationService struct {
	catalog   domain.CatalogProvider
	matcher   CandidateMatcher
	extractor *RowExtractor

	batchSize           int
	dedupeWithinRun     bool
	defaultUnit         string
	defaultMinThreshold float64
	updatedBy           string

	logger   *zap.Logger
	recorder ImportRecorder
	reports  domain.ReportRepository
	now      func() time.Time
	newID    func() string
}

// NewReconciliationService creates a new reconciliation service with dependencies
func NewReconciliationService(
	catalog domain.CatalogProvider,
	matcher CandidateMatcher,
	config ReconciliationConfig,
) *ReconciliationService {
	batchSize := config.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	unit := config.DefaultUnit
	if unit == "" {
		unit = "bouteille"
	}

	updatedBy := config.UpdatedBy
	if updatedBy == "" {
		updatedBy = "import"
	}

	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	recorder := config.Recorder
	if recorder == nil {
		recorder = noopRecorder{}
	}

	clock := config.Clock
	if clock == nil {
		clock = time.Now
	}

	newID := config.NewID
	if newID == nil {
		newID = func() string { return uuid.New().String() }
	}

	return &ReconciliationService{
		catalog:             catalog,
		matcher:             matcher,
		extractor:           NewRowExtractor(),
		batchSize:           batchSize,
		dedupeWithinRun:     config.DedupeWithinRun,
		defaultUnit:         unit,
		defaultMinThreshold: config.DefaultMinThreshold,
		updatedBy:           updatedBy,
		logger:              logger,
		recorder:            recorder,
		reports:             config.Reports,
		now:                 clock,
		newID:               newID,
	}
}

// ImportFile reads path with reader and reconciles its rows.
// A read failure aborts the run before any row is processed.
func (s *ReconciliationService) ImportFile(
	ctx context.Context,
	reader domain.TabularReader,
	path string,
	opts ImportOptions,
) (*domain.ImportResult, error) {
	if opts.Source == "" {
		opts.Source = path
	}

	rows, err := reader.Read(ctx, path)
	if err != nil {
		result := s.newResult(opts)
		return s.fail(ctx, result, readError(err))
	}

	return s.ImportRows(ctx, rows, opts)
}

// ImportReader parses src in format with reader and reconciles its rows.
// A parse failure closes the run as failed, same as ImportFile.
func (s *ReconciliationService) ImportReader(
	ctx context.Context,
	reader domain.TabularReader,
	src io.Reader,
	format string,
	opts ImportOptions,
) (*domain.ImportResult, error) {
	rows, err := reader.ReadFrom(ctx, src, format)
	if err != nil {
		return s.fail(ctx, s.newResult(opts), readError(err))
	}

	return s.ImportRows(ctx, rows, opts)
}

// ImportRows extracts candidates from rows and reconciles them in row order.
// Rejected rows are logged as skipped.
func (s *ReconciliationService) ImportRows(
	ctx context.Context,
	rows []domain.Row,
	opts ImportOptions,
) (*domain.ImportResult, error) {
	items := make([]runItem, 0, len(rows))
	for _, row := range rows {
		candidate, ok := s.extractor.ExtractRow(row)
		if !ok {
			reason := s.extractor.RejectionReason(row)
			s.logger.Warn("row rejected",
				zap.Int("row", row.Number),
				zap.String("reason", reason))
			items = append(items, runItem{rowNumber: row.Number, rejection: reason})
			continue
		}
		items = append(items, runItem{rowNumber: row.Number, candidate: candidate})
	}

	return s.run(ctx, items, opts)
}

// Reconcile reconciles already extracted candidates
func (s *ReconciliationService) Reconcile(
	ctx context.Context,
	candidates []*domain.ImportCandidate,
	opts ImportOptions,
) (*domain.ImportResult, error) {
	items := make([]runItem, 0, len(candidates))
	for _, candidate := range candidates {
		if candidate == nil {
			continue
		}
		items = append(items, runItem{rowNumber: candidate.RowNumber, candidate: candidate})
	}
	return s.run(ctx, items, opts)
}

// runItem is either an extracted candidate or a rejected row
type runItem struct {
	rowNumber int
	candidate *domain.ImportCandidate
	rejection string
}

// runState is the mutable state of one run
type runState struct {
	result *domain.ImportResult
	view   []domain.CatalogProduct

	ops        []domain.WriteOperation
	opEntries  []int          // log index of the entry that produced each op
	linked     map[int][]int  // op index -> extra entries folded into that op
	pendingNew map[string]int // product id -> index in ops, for unflushed creates
}

// run is the reconciliation state machine shared by every entry point
func (s *ReconciliationService) run(
	ctx context.Context,
	items []runItem,
	opts ImportOptions,
) (*domain.ImportResult, error) {
	result := s.newResult(opts)
	started := s.now()

	s.logger.Info("import started",
		zap.String("import_id", result.ID),
		zap.String("source", result.Source),
		zap.Int("rows", len(items)),
		zap.Bool("dry_run", opts.DryRun))

	snapshot, err := s.catalog.GetAll(ctx)
	if err != nil {
		return s.fail(ctx, result, fmt.Errorf("%w: %w", domain.ErrCatalogRead, err))
	}

	state := &runState{
		result:     result,
		view:       snapshot,
		pendingNew: make(map[string]int),
	}
	if s.dedupeWithinRun {
		// The overlay grows during the run; never append into the provider's slice
		state.view = append(make([]domain.CatalogProduct, 0, len(snapshot)), snapshot...)
	}

	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return s.fail(ctx, result, err)
		}

		result.Processed++

		if item.candidate == nil {
			s.appendEntry(result, domain.ImportLogEntry{
				RowNumber: item.rowNumber,
				Action:    domain.ActionSkipped,
				Message:   fmt.Sprintf("%v: %s", domain.ErrRowRejected, item.rejection),
			})
			continue
		}

		if err := s.processCandidate(ctx, state, item.candidate); err != nil {
			if ctx.Err() != nil {
				return s.fail(ctx, result, ctx.Err())
			}
			s.logger.Error("row failed",
				zap.Int("row", item.rowNumber),
				zap.String("name", item.candidate.OfficialName),
				zap.Error(err))
			s.appendEntry(result, domain.ImportLogEntry{
				RowNumber:    item.rowNumber,
				Action:       domain.ActionError,
				OriginName:   item.candidate.OriginName,
				OfficialName: item.candidate.OfficialName,
				NewQuantity:  item.candidate.Quantity,
				Message:      err.Error(),
			})
			continue
		}

		if len(state.ops) >= s.batchSize {
			if err := s.flush(ctx, state, opts); err != nil {
				return s.fail(ctx, result, err)
			}
		}
	}

	if len(state.ops) > 0 {
		if err := s.flush(ctx, state, opts); err != nil {
			return s.fail(ctx, result, err)
		}
	}

	result.Status = domain.RunCompleted
	result.FinishedAt = s.now()
	s.recorder.RunFinished(result.Status, result.FinishedAt.Sub(started))

	s.logger.Info("import completed",
		zap.String("import_id", result.ID),
		zap.Int("processed", result.Processed),
		zap.Int("updated", result.Updated),
		zap.Int("created", result.Created),
		zap.Int("skipped", result.Skipped),
		zap.Int("errors", result.Errors),
		zap.Int("flushes", result.Flushes))

	s.saveReport(ctx, result)
	return result, nil
}

// processCandidate matches one candidate and buffers its write intent.
// Panics are turned into errors so one bad row cannot abort the run.
func (s *ReconciliationService) processCandidate(
	ctx context.Context,
	state *runState,
	candidate *domain.ImportCandidate,
) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("unexpected failure: %v", r)
		}
	}()

	match, err := s.matcher.FindBestMatch(ctx, candidate, state.view)
	switch {
	case err == nil:
		s.bufferUpdate(state, candidate, match)
		return nil
	case errors.Is(err, domain.ErrNoMatch), errors.Is(err, domain.ErrLowConfidence):
		s.bufferCreate(state, candidate)
		return nil
	default:
		return err
	}
}

// bufferUpdate emits an update intent that replaces the product quantity
func (s *ReconciliationService) bufferUpdate(
	state *runState,
	candidate *domain.ImportCandidate,
	match *domain.MatchResult,
) {
	now := s.now()
	entryIdx := s.appendEntry(state.result, domain.ImportLogEntry{
		RowNumber:    candidate.RowNumber,
		Action:       domain.ActionUpdated,
		ProductID:    match.Product.ID,
		OriginName:   candidate.OriginName,
		OfficialName: candidate.OfficialName,
		MatchedName:  match.Product.Name,
		MatchType:    match.MatchType,
		MatchScore:   match.Score,
		OldQuantity:  match.Product.Quantity,
		NewQuantity:  candidate.Quantity,
	})

	if s.dedupeWithinRun {
		s.applyToOverlay(state, match.Product.ID, candidate.Quantity, now)

		// Product created earlier in this run and not flushed yet: amend the create
		if opIdx, ok := state.pendingNew[match.Product.ID]; ok {
			product := *state.ops[opIdx].Product
			product.Quantity = candidate.Quantity
			product.UpdatedAt = now
			state.ops[opIdx].Product = &product
			state.result.Logs[entryIdx].Message = "amended product created earlier in this import"
			s.linkEntry(state, opIdx, entryIdx)
			return
		}
	}

	s.appendOp(state, domain.NewUpdateOperation(match.Product.ID, domain.ProductUpdate{
		Quantity:     candidate.Quantity,
		UpdatedAt:    now,
		UpdatedBy:    s.updatedBy,
		LastImportID: state.result.ID,
	}), entryIdx)
}

// bufferCreate emits a create intent seeded from the candidate
func (s *ReconciliationService) bufferCreate(state *runState, candidate *domain.ImportCandidate) {
	now := s.now()
	category := candidate.Category
	if !category.Valid() {
		category = domain.CategoryOther
	}

	product := domain.CatalogProduct{
		ID:            s.newID(),
		Name:          candidate.OfficialName,
		Category:      category,
		Quantity:      candidate.Quantity,
		Unit:          s.defaultUnit,
		PurchasePrice: candidate.PurchasePrice,
		SalePrice:     candidate.SalePrice,
		MinThreshold:  s.defaultMinThreshold,
		Active:        true,
		CreatedAt:     now,
		UpdatedAt:     now,
		UpdatedBy:     s.updatedBy,
		LastImportID:  state.result.ID,
	}

	entryIdx := s.appendEntry(state.result, domain.ImportLogEntry{
		RowNumber:    candidate.RowNumber,
		Action:       domain.ActionCreated,
		ProductID:    product.ID,
		OriginName:   candidate.OriginName,
		OfficialName: candidate.OfficialName,
		NewQuantity:  candidate.Quantity,
	})

	if s.dedupeWithinRun {
		state.view = append(state.view, product)
		state.pendingNew[product.ID] = len(state.ops)
	}

	s.appendOp(state, domain.NewCreateOperation(product), entryIdx)
}

// appendOp buffers op and remembers which log entry it belongs to
func (s *ReconciliationService) appendOp(state *runState, op domain.WriteOperation, entryIdx int) {
	state.ops = append(state.ops, op)
	state.opEntries = append(state.opEntries, entryIdx)
}

// linkEntry records that entryIdx is committed together with the op at opIdx
func (s *ReconciliationService) linkEntry(state *runState, opIdx, entryIdx int) {
	if state.linked == nil {
		state.linked = make(map[int][]int)
	}
	state.linked[opIdx] = append(state.linked[opIdx], entryIdx)
}

// applyToOverlay mirrors a buffered quantity change in the in-run view
func (s *ReconciliationService) applyToOverlay(state *runState, id string, quantity float64, now time.Time) {
	for i := range state.view {
		if state.view[i].ID == id {
			state.view[i].Quantity = quantity
			state.view[i].UpdatedAt = now
			return
		}
	}
}

// flush sends the buffered intents in one atomic BatchWrite call.
// Log entries are marked committed only after the provider accepted the batch.
func (s *ReconciliationService) flush(ctx context.Context, state *runState, opts ImportOptions) error {
	ops := state.ops
	if !opts.DryRun {
		err := s.catalog.BatchWrite(ctx, ops)
		s.recorder.FlushCompleted(err)
		if err != nil {
			s.logger.Error("batch flush failed",
				zap.String("import_id", state.result.ID),
				zap.Int("operations", len(ops)),
				zap.Error(err))
			return fmt.Errorf("%w: %w", domain.ErrPersistence, err)
		}
		state.result.Flushes++

		for opIdx, entryIdx := range state.opEntries {
			state.result.Logs[entryIdx].Committed = true
			for _, linked := range state.linked[opIdx] {
				state.result.Logs[linked].Committed = true
			}
		}

		s.logger.Debug("batch flushed",
			zap.String("import_id", state.result.ID),
			zap.Int("operations", len(ops)))
	}

	state.ops = nil
	state.opEntries = nil
	state.linked = nil
	// Flushed creates are regular catalog products from now on
	state.pendingNew = make(map[string]int)
	return nil
}

// appendEntry adds an entry to the log, bumps the matching counter and returns its index
func (s *ReconciliationService) appendEntry(result *domain.ImportResult, entry domain.ImportLogEntry) int {
	switch entry.Action {
	case domain.ActionUpdated:
		result.Updated++
	case domain.ActionCreated:
		result.Created++
	case domain.ActionSkipped:
		result.Skipped++
	case domain.ActionError:
		result.Errors++
	}
	s.recorder.RowProcessed(entry.Action)
	result.Logs = append(result.Logs, entry)
	return len(result.Logs) - 1
}

// newResult starts an empty report for a run
func (s *ReconciliationService) newResult(opts ImportOptions) *domain.ImportResult {
	return &domain.ImportResult{
		ID:        s.newID(),
		Source:    opts.Source,
		DryRun:    opts.DryRun,
		StartedAt: s.now(),
		Logs:      []domain.ImportLogEntry{},
	}
}

// fail closes the run as failed and returns the report with the run-level error
func (s *ReconciliationService) fail(ctx context.Context, result *domain.ImportResult, err error) (*domain.ImportResult, error) {
	result.Status = domain.RunFailed
	result.FailureReason = err.Error()
	result.FinishedAt = s.now()
	s.recorder.RunFinished(result.Status, result.FinishedAt.Sub(result.StartedAt))

	s.logger.Error("import failed",
		zap.String("import_id", result.ID),
		zap.String("source", result.Source),
		zap.Int("processed", result.Processed),
		zap.Error(err))

	s.saveReport(ctx, result)
	return result, err
}

// saveReport stores the finished report; a storage failure does not fail the run
func (s *ReconciliationService) saveReport(ctx context.Context, result *domain.ImportResult) {
	if s.reports == nil {
		return
	}
	if err := s.reports.Save(context.WithoutCancel(ctx), result); err != nil {
		s.logger.Warn("failed to store import report",
			zap.String("import_id", result.ID),
			zap.Error(err))
	}
}

// readError wraps a reader failure as a source read error
func readError(err error) error {
	if errors.Is(err, domain.ErrSourceRead) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrSourceRead, err)
}

// noopRecorder discards telemetry
type noopRecorder struct{}

func (noopRecorder) RowProcessed(domain.ImportAction)             {}
func (noopRecorder) FlushCompleted(error)                         {}
func (noopRecorder) RunFinished(domain.RunStatus, time.Duration) {}

package scan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/campusmess/mess-server/internal/catalog"
	"github.com/campusmess/mess-server/internal/database"
	"github.com/campusmess/mess-server/internal/facematch"
	"github.com/campusmess/mess-server/internal/ml"
)

// ErrMissingImage is returned when a scan request lacks one of the two
// required images. Checked before any external call is made.
var ErrMissingImage = errors.New("food_image and face_image are required")

// UserSource lists registered faces eligible for matching. Implementations
// must return candidates in a stable order so distance ties resolve the same
// way across runs.
type UserSource interface {
	ListFaceCandidates(ctx context.Context) ([]facematch.Candidate, error)
}

// MenuSource provides the snapshot of available items a scan matches against.
type MenuSource interface {
	ListAvailableItems(ctx context.Context) ([]database.MenuItem, error)
}

// TransactionStore persists completed scan transactions.
type TransactionStore interface {
	CreateTransaction(ctx context.Context, trx *database.Transaction) error
}

// ItemCreator persists auto-detected items as new catalog entries. Only used
// when auto-create is enabled.
type ItemCreator interface {
	CreateMenuItem(ctx context.Context, item *database.MenuItem) error
}

// Stores bundles the persistence surfaces a scan touches.
type Stores struct {
	Users UserSource
	Menu  MenuSource
	Trx   TransactionStore
	Items ItemCreator
}

// Options tune orchestrator behavior.
type Options struct {
	// AutoCreateItems persists unmatched detections as new catalog entries
	// so future scans can match them. Off by default: the safer choice is to
	// keep auto-detected items ephemeral per transaction.
	AutoCreateItems bool

	// FaceIndex, when set, replaces the linear candidate scan with an HNSW
	// lookup. The threshold contract is unchanged.
	FaceIndex *facematch.Index
}

// Result is the full outcome of one scan, including the audit data the
// handler echoes back to the client.
type Result struct {
	Transaction *database.Transaction
	UserID      uuid.UUID
	Resolution  facematch.Resolution
	Detections  []ml.Detection
	Items       []catalog.LineItem
	Total       float64
}

// Orchestrator runs the scan pipeline: face identity on one side, food
// detection and matching on the other, then a single transaction write.
type Orchestrator struct {
	embedder ml.EmbeddingClient
	detector ml.FoodDetector
	resolver *facematch.Resolver
	matcher  *catalog.Matcher
	stores   Stores
	opts     Options
}

// New creates an orchestrator with injected service clients and stores.
func New(embedder ml.EmbeddingClient, detector ml.FoodDetector, resolver *facematch.Resolver, matcher *catalog.Matcher, stores Stores, opts Options) *Orchestrator {
	return &Orchestrator{
		embedder: embedder,
		detector: detector,
		resolver: resolver,
		matcher:  matcher,
		stores:   stores,
		opts:     opts,
	}
}

// resolveFace runs the identity half of the pipeline: probe embedding from
// the external service, then nearest-neighbor resolution against all
// registered faces.
func (o *Orchestrator) resolveFace(ctx context.Context, faceImage []byte) (facematch.Resolution, error) {
	probe, err := o.embedder.FaceEmbedding(ctx, faceImage, "face.jpg")
	if err != nil {
		return facematch.Resolution{}, fmt.Errorf("face embedding: %w", err)
	}

	if o.opts.FaceIndex != nil && o.opts.FaceIndex.Count() > 0 {
		return o.opts.FaceIndex.Resolve(probe, o.resolver.Threshold()), nil
	}

	candidates, err := o.stores.Users.ListFaceCandidates(ctx)
	if err != nil {
		return facematch.Resolution{}, fmt.Errorf("list face candidates: %w", err)
	}

	return o.resolver.Resolve(probe, candidates), nil
}

// matchFood runs the food half of the pipeline: detection from the vision
// service, then reconciliation against a fresh catalog snapshot.
func (o *Orchestrator) matchFood(ctx context.Context, foodImage []byte) ([]ml.Detection, []catalog.LineItem, error) {
	menuItems, err := o.stores.Menu.ListAvailableItems(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list menu items: %w", err)
	}
	ix := catalog.BuildIndex(menuItems)

	detections, err := o.detector.DetectFood(ctx, foodImage, ix.Names())
	if err != nil {
		return nil, nil, fmt.Errorf("food detection: %w", err)
	}

	labels := make([]catalog.DetectedLabel, 0, len(detections))
	for _, d := range detections {
		labels = append(labels, catalog.DetectedLabel{
			Label:          d.ClassName,
			Confidence:     d.Confidence,
			EstimatedPrice: d.EstimatedPrice,
		})
	}

	return detections, o.matcher.Match(labels, ix), nil
}

// RunScan executes one scan for the given images. The two sub-pipelines run
// concurrently; both must succeed before anything is written. An unresolved
// face is not a failure: the transaction is attributed to requestingUser
// instead, so every successful scan produces a transaction for someone.
func (o *Orchestrator) RunScan(ctx context.Context, foodImage, faceImage []byte, requestingUser uuid.UUID) (*Result, error) {
	if len(foodImage) == 0 || len(faceImage) == 0 {
		return nil, ErrMissingImage
	}

	var (
		wg         sync.WaitGroup
		resolution facematch.Resolution
		faceErr    error
		detections []ml.Detection
		lineItems  []catalog.LineItem
		foodErr    error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		resolution, faceErr = o.resolveFace(ctx, faceImage)
	}()
	go func() {
		defer wg.Done()
		detections, lineItems, foodErr = o.matchFood(ctx, foodImage)
	}()
	wg.Wait()

	if faceErr != nil {
		return nil, faceErr
	}
	if foodErr != nil {
		return nil, foodErr
	}

	userID := requestingUser
	var faceDistance *float64
	if resolution.Resolved {
		userID = resolution.UserID
		d := resolution.Distance
		faceDistance = &d
	}

	if o.opts.AutoCreateItems {
		o.createUnmatchedItems(ctx, lineItems)
	}

	raw, err := json.Marshal(detections)
	if err != nil {
		return nil, fmt.Errorf("marshal raw detections: %w", err)
	}

	trx := &database.Transaction{
		ID:            uuid.New(),
		UserID:        userID,
		Total:         catalog.Total(lineItems),
		Status:        database.StatusCompleted,
		FaceDistance:  faceDistance,
		RawDetections: raw,
		CreatedAt:     time.Now(),
	}
	for _, it := range lineItems {
		trx.Items = append(trx.Items, database.TransactionItem{
			Name:     it.Name,
			Price:    it.Price,
			Quantity: it.Quantity,
		})
	}

	if err := o.stores.Trx.CreateTransaction(ctx, trx); err != nil {
		return nil, fmt.Errorf("create transaction: %w", err)
	}

	return &Result{
		Transaction: trx,
		UserID:      userID,
		Resolution:  resolution,
		Detections:  detections,
		Items:       lineItems,
		Total:       trx.Total,
	}, nil
}

// createUnmatchedItems persists auto-detected items so future scans can match
// them by name. Failures are ignored: catalog growth is best effort and must
// never block the transaction.
func (o *Orchestrator) createUnmatchedItems(ctx context.Context, items []catalog.LineItem) {
	if o.stores.Items == nil {
		return
	}
	now := time.Now()
	for _, it := range items {
		if it.Item != nil {
			continue
		}
		_ = o.stores.Items.CreateMenuItem(ctx, &database.MenuItem{
			ID:          uuid.New(),
			Name:        it.Name,
			Price:       it.Price,
			Category:    "Auto Detected",
			IsAvailable: true,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}
}

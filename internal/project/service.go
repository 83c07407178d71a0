package project

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pixora/pixora/backend-go/internal/db"
	"github.com/pixora/pixora/backend-go/internal/db/dbgen"
	"github.com/pixora/pixora/backend-go/internal/plan"
	"github.com/pixora/pixora/backend-go/internal/resize"
	"github.com/pixora/pixora/backend-go/internal/typeid"
)

// QuotaError carries the upgrade prompt shown when a free-tier quota is hit.
type QuotaError struct {
	Limit  int
	Reason string
}

func (e *QuotaError) Error() string { return e.Reason }

func (e *QuotaError) Unwrap() error { return ErrQuotaExceeded }

// Store is the query surface the service needs. *dbgen.Queries satisfies it.
type Store interface {
	GetUserByID(ctx context.Context, id string) (dbgen.User, error)
	GetUserByIDForUpdate(ctx context.Context, id string) (dbgen.User, error)
	IncrementProjectsUsed(ctx context.Context, id string) error
	DecrementProjectsUsed(ctx context.Context, id string) error
	CountProjectsForUser(ctx context.Context, userID string) (int64, error)
	CreateProject(ctx context.Context, arg dbgen.CreateProjectParams) (dbgen.Project, error)
	GetProject(ctx context.Context, id string) (dbgen.Project, error)
	ListProjectsForUser(ctx context.Context, userID string) ([]dbgen.Project, error)
	UpdateProject(ctx context.Context, arg dbgen.UpdateProjectParams) (dbgen.Project, error)
	DeleteProject(ctx context.Context, id string) error
	CountExportsSince(ctx context.Context, arg dbgen.CountExportsSinceParams) (int64, error)
	CreateExport(ctx context.Context, arg dbgen.CreateExportParams) (dbgen.Export, error)
	DeleteExport(ctx context.Context, id string) error
}

// TxFunc runs fn against a transactional Store.
type TxFunc func(ctx context.Context, fn func(Store) error) error

// PoolTx runs each call in a pgx transaction on pool.
func PoolTx(pool *pgxpool.Pool) TxFunc {
	return func(ctx context.Context, fn func(Store) error) error {
		return db.InTx(ctx, pool, func(tx pgx.Tx) error {
			return fn(dbgen.New(tx))
		})
	}
}

type Service struct {
	store  Store
	tx     TxFunc
	limits plan.Limits
	now    func() time.Time
}

func NewService(store Store, tx TxFunc, limits plan.Limits) *Service {
	return &Service{store: store, tx: tx, limits: limits, now: time.Now}
}

// Policy returns the access policy for the user's current tier.
func (s *Service) Policy(ctx context.Context, userID string) (plan.Policy, error) {
	u, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return plan.Policy{}, fmt.Errorf("get user: %w", err)
	}
	return plan.NewPolicy(plan.ParseTier(u.Plan), s.limits), nil
}

func (s *Service) Create(ctx context.Context, userID string, p CreateParams) (*Project, error) {
	p.Title = strings.TrimSpace(p.Title)
	if p.Title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidRequest)
	}
	if err := resize.Validate(p.Width, p.Height); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	var created dbgen.Project
	err := s.tx(ctx, func(q Store) error {
		// The row lock serialises concurrent creates for one user until commit.
		u, err := q.GetUserByIDForUpdate(ctx, userID)
		if err != nil {
			return fmt.Errorf("lock user: %w", err)
		}
		policy := plan.NewPolicy(plan.ParseTier(u.Plan), s.limits)
		if !policy.IsPro() {
			n, err := q.CountProjectsForUser(ctx, userID)
			if err != nil {
				return fmt.Errorf("count projects: %w", err)
			}
			if !policy.CanCreateProject(int(n)) {
				return &QuotaError{Limit: s.limits.Projects, Reason: plan.ProjectLimitReason(s.limits.Projects)}
			}
		}

		created, err = q.CreateProject(ctx, dbgen.CreateProjectParams{
			ID:               typeid.NewProjectID(),
			UserID:           userID,
			Title:            p.Title,
			Width:            int32(p.Width),
			Height:           int32(p.Height),
			OriginalImageUrl: optionalText(p.OriginalImageURL),
			CurrentImageUrl:  optionalText(p.CurrentImageURL),
			ThumbnailUrl:     optionalText(p.ThumbnailURL),
		})
		if err != nil {
			return fmt.Errorf("create project: %w", err)
		}
		if err := q.IncrementProjectsUsed(ctx, userID); err != nil {
			return fmt.Errorf("increment projects used: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dbProjectToProject(created), nil
}

// Get returns the project if userID owns it.
func (s *Service) Get(ctx context.Context, projectID, userID string) (*Project, error) {
	dbProj, err := s.owned(ctx, s.store, projectID, userID)
	if err != nil {
		return nil, err
	}
	return dbProjectToProject(dbProj), nil
}

// List returns the user's projects, most recently updated first.
func (s *Service) List(ctx context.Context, userID string) ([]Project, error) {
	dbProjects, err := s.store.ListProjectsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}

	projects := make([]Project, len(dbProjects))
	for i, p := range dbProjects {
		projects[i] = *dbProjectToProject(p)
	}
	return projects, nil
}

// Update applies a partial patch. updated_at is bumped even for an empty patch.
func (s *Service) Update(ctx context.Context, projectID, userID string, patch Patch) (*Project, error) {
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return nil, fmt.Errorf("%w: title cannot be empty", ErrInvalidRequest)
	}
	if patch.Width != nil || patch.Height != nil {
		if patch.Width == nil || patch.Height == nil {
			return nil, fmt.Errorf("%w: width and height must be set together", ErrInvalidRequest)
		}
		if err := resize.Validate(*patch.Width, *patch.Height); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
	}

	if _, err := s.owned(ctx, s.store, projectID, userID); err != nil {
		return nil, err
	}

	arg := dbgen.UpdateProjectParams{ID: projectID}
	if patch.Title != nil {
		arg.Title = pgtype.Text{String: strings.TrimSpace(*patch.Title), Valid: true}
	}
	if patch.Width != nil {
		arg.Width = pgtype.Int4{Int32: int32(*patch.Width), Valid: true}
		arg.Height = pgtype.Int4{Int32: int32(*patch.Height), Valid: true}
	}
	if len(patch.CanvasState) > 0 {
		arg.CanvasState = patch.CanvasState
	}
	if patch.CurrentImageURL != nil {
		arg.CurrentImageUrl = pgtype.Text{String: *patch.CurrentImageURL, Valid: true}
	}
	if patch.ThumbnailURL != nil {
		arg.ThumbnailUrl = pgtype.Text{String: *patch.ThumbnailURL, Valid: true}
	}

	updated, err := s.store.UpdateProject(ctx, arg)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update project: %w", err)
	}
	return dbProjectToProject(updated), nil
}

// Delete removes the project and releases one unit of the owner's quota.
func (s *Service) Delete(ctx context.Context, projectID, userID string) error {
	return s.tx(ctx, func(q Store) error {
		if _, err := s.owned(ctx, q, projectID, userID); err != nil {
			return err
		}
		if err := q.DeleteProject(ctx, projectID); err != nil {
			return fmt.Errorf("delete project: %w", err)
		}
		if err := q.DecrementProjectsUsed(ctx, userID); err != nil {
			return fmt.Errorf("decrement projects used: %w", err)
		}
		return nil
	})
}

// Usage reports the user's project counter and exports this calendar month.
func (s *Service) Usage(ctx context.Context, userID string) (Usage, error) {
	u, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return Usage{}, fmt.Errorf("get user: %w", err)
	}
	exports, err := s.ExportsThisMonth(ctx, userID)
	if err != nil {
		return Usage{}, err
	}
	return Usage{ProjectsUsed: int(u.ProjectsUsed), ExportsThisMonth: exports}, nil
}

func (s *Service) ExportsThisMonth(ctx context.Context, userID string) (int, error) {
	return s.exportsSince(ctx, s.store, userID)
}

func (s *Service) exportsSince(ctx context.Context, q Store, userID string) (int, error) {
	n, err := q.CountExportsSince(ctx, dbgen.CountExportsSinceParams{
		UserID:    userID,
		CreatedAt: pgtype.Timestamptz{Time: MonthStart(s.now()), Valid: true},
	})
	if err != nil {
		return 0, fmt.Errorf("count exports: %w", err)
	}
	return int(n), nil
}

// ReserveExport counts one export against the user's monthly quota before it
// is rendered. The quota check and the insert share a transaction holding
// the user's row lock. Free-tier users at the limit get a *QuotaError.
// The returned id is passed to ReleaseExport if the export is not delivered.
func (s *Service) ReserveExport(ctx context.Context, projectID, userID, format string, width, height int) (string, error) {
	id := typeid.NewExportID()
	err := s.tx(ctx, func(q Store) error {
		u, err := q.GetUserByIDForUpdate(ctx, userID)
		if err != nil {
			return fmt.Errorf("lock user: %w", err)
		}
		policy := plan.NewPolicy(plan.ParseTier(u.Plan), s.limits)
		if !policy.IsPro() {
			used, err := s.exportsSince(ctx, q, userID)
			if err != nil {
				return err
			}
			if !policy.CanExport(used) {
				return &QuotaError{Limit: s.limits.Exports, Reason: plan.ExportLimitReason(s.limits.Exports)}
			}
		}
		_, err = q.CreateExport(ctx, dbgen.CreateExportParams{
			ID:        id,
			ProjectID: projectID,
			UserID:    userID,
			Format:    format,
			Width:     int32(width),
			Height:    int32(height),
		})
		if err != nil {
			return fmt.Errorf("record export: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// ReleaseExport refunds a reservation whose export failed.
func (s *Service) ReleaseExport(ctx context.Context, exportID string) error {
	if err := s.store.DeleteExport(ctx, exportID); err != nil {
		return fmt.Errorf("release export: %w", err)
	}
	return nil
}

// MonthStart is midnight UTC on the first day of t's month.
func MonthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func (s *Service) owned(ctx context.Context, q Store, projectID, userID string) (dbgen.Project, error) {
	if err := typeid.Validate(projectID, typeid.PrefixProject); err != nil {
		return dbgen.Project{}, ErrNotFound
	}
	dbProj, err := q.GetProject(ctx, projectID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return dbgen.Project{}, ErrNotFound
		}
		return dbgen.Project{}, fmt.Errorf("get project: %w", err)
	}
	if dbProj.UserID != userID {
		return dbgen.Project{}, ErrUnauthorized
	}
	return dbProj, nil
}

// Gateway persists editing-session updates on behalf of one user.
type Gateway struct {
	svc    *Service
	userID string
}

func (s *Service) ForUser(userID string) *Gateway {
	return &Gateway{svc: s, userID: userID}
}

func (g *Gateway) UpdateProject(ctx context.Context, projectID string, patch Patch) error {
	_, err := g.svc.Update(ctx, projectID, g.userID, patch)
	return err
}

func optionalText(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}

func dbProjectToProject(p dbgen.Project) *Project {
	return &Project{
		ID:               p.ID,
		UserID:           p.UserID,
		Title:            p.Title,
		Width:            int(p.Width),
		Height:           int(p.Height),
		OriginalImageURL: p.OriginalImageUrl.String,
		CurrentImageURL:  p.CurrentImageUrl.String,
		ThumbnailURL:     p.ThumbnailUrl.String,
		CanvasState:      p.CanvasState,
		CreatedAt:        p.CreatedAt.Time,
		UpdatedAt:        p.UpdatedAt.Time,
	}
}

package notes

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/Azure/cosmosdb-emulator-recipes/internal/database"
	"github.com/Azure/cosmosdb-emulator-recipes/internal/models"
)

var ErrNotFound = errors.New("note not found")

// Service stores notes as documents of a single container.
type Service struct {
	store database.Store
}

func NewService(store database.Store) *Service {
	return &Service{store: store}
}

func (s *Service) Init(ctx context.Context) error {
	return s.store.EnsureContainer(ctx)
}

func (s *Service) List(ctx context.Context) ([]models.Note, error) {
	out := []models.Note{}
	err := s.store.Scan(ctx, func(d database.Document) error {
		out = append(out, toNote(d))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, id string) (models.Note, error) {
	d, err := s.store.Get(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return models.Note{}, ErrNotFound
	}
	if err != nil {
		return models.Note{}, fmt.Errorf("failed to read note %s: %w", id, err)
	}
	return toNote(d), nil
}

func (s *Service) Create(ctx context.Context, content string) (models.Note, error) {
	n := models.Note{ID: uuid.NewString(), Content: content}
	if err := s.store.Insert(ctx, database.Document{"id": n.ID, "content": n.Content}); err != nil {
		return models.Note{}, fmt.Errorf("failed to create note: %w", err)
	}
	log.WithField("id", n.ID).Info("Created note")
	return n, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	err := s.store.Delete(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete note %s: %w", id, err)
	}
	return nil
}

func toNote(d database.Document) models.Note {
	content, _ := d["content"].(string)
	return models.Note{ID: d.ID(), Content: content}
}

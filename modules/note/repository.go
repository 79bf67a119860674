package note

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domain "github.com/collabnotes/collabnotes/domain/note"
)

// Repository provides access to note and share storage.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new note repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// accessibleTo scopes a query to notes the user owns or has been shared.
func (r *Repository) accessibleTo(userID string) *gorm.DB {
	return r.db.Model(&domain.Note{}).
		Joins("LEFT JOIN note_shares ns ON ns.note_id = notes.id AND ns.user_id = ?", userID).
		Where("notes.owner_id = ? OR ns.user_id IS NOT NULL", userID)
}

// Create persists a note.
func (r *Repository) Create(n *domain.Note) error {
	if err := r.db.Create(n).Error; err != nil {
		return fmt.Errorf("failed to create note: %w", err)
	}
	return nil
}

// FindByID retrieves a note with owner and shares populated, regardless of
// who is asking. Access control lives in the service.
func (r *Repository) FindByID(id string) (*domain.Note, error) {
	var n domain.Note
	err := r.db.
		Preload("Owner").
		Preload("SharedWith.User").
		First(&n, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoteNotFound
		}
		return nil, fmt.Errorf("failed to find note: %w", err)
	}
	return &n, nil
}

// FindAccessible retrieves a note only if the user owns it or has a share.
// Everyone else gets ErrNoteNotFound.
func (r *Repository) FindAccessible(id, userID string) (*domain.Note, error) {
	n, err := r.FindByID(id)
	if err != nil {
		return nil, err
	}
	if !n.HasAccess(userID) {
		return nil, ErrNoteNotFound
	}
	return n, nil
}

// List returns one page of the notes the user can see, filtered and sorted
// pinned first, then most recently updated.
func (r *Repository) List(userID string, filter ListFilter) (*Page, error) {
	query := r.accessibleTo(userID)

	if filter.Search != "" {
		pattern := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where("LOWER(notes.title) LIKE ? OR LOWER(notes.content) LIKE ?", pattern, pattern)
	}
	if len(filter.Labels) > 0 {
		labelMatch := r.db.Where("1 = 0")
		for _, label := range filter.Labels {
			labelMatch = labelMatch.Or("notes.labels LIKE ?", "%"+`"`+label+`"`+"%")
		}
		query = query.Where(labelMatch)
	}
	if filter.Archived != nil {
		query = query.Where("notes.archived = ?", *filter.Archived)
	}
	if filter.Pinned != nil {
		query = query.Where("notes.pinned = ?", *filter.Pinned)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count notes: %w", err)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	limit := filter.Limit
	if limit < 1 {
		limit = 20
	}

	var notes []*domain.Note
	err := query.
		Preload("Owner").
		Preload("SharedWith.User").
		Order("notes.pinned DESC, notes.updated_at DESC").
		Limit(limit).
		Offset((page - 1) * limit).
		Find(&notes).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return &Page{
		Notes:       notes,
		Total:       total,
		TotalPages:  totalPages,
		CurrentPage: page,
	}, nil
}

// Save persists the note's scalar fields.
func (r *Repository) Save(n *domain.Note) error {
	if err := r.db.Omit(clause.Associations).Save(n).Error; err != nil {
		return fmt.Errorf("failed to save note: %w", err)
	}
	return nil
}

// Delete removes a note and its shares.
func (r *Repository) Delete(id string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("note_id = ?", id).Delete(&domain.Share{}).Error; err != nil {
			return fmt.Errorf("failed to delete note shares: %w", err)
		}
		if err := tx.Delete(&domain.Note{}, "id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to delete note: %w", err)
		}
		return nil
	})
}

// AddShares persists share rows. Callers filter out existing holders first.
func (r *Repository) AddShares(shares []domain.Share) error {
	if len(shares) == 0 {
		return nil
	}
	if err := r.db.Create(&shares).Error; err != nil {
		return fmt.Errorf("failed to add note shares: %w", err)
	}
	return nil
}

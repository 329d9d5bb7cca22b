package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/filedepot/filedepot/internal/common"
	"github.com/filedepot/filedepot/internal/storage"
	"github.com/filedepot/filedepot/pkg/types"
	"github.com/filedepot/filedepot/pkg/utils"
)

// PageSize is the fixed page size for node listings.
const PageSize = 20

// JobQueue hands newly created images to the thumbnail pipeline.
type JobQueue interface {
	Enqueue(ctx context.Context, fileID, userID uuid.UUID) error
}

// CreateNodeParams carries the validated-enough input for CreateNode.
// Content is nil when the request carried no data.
type CreateNodeParams struct {
	OwnerID  uuid.UUID
	Name     string
	Kind     types.NodeKind
	ParentID uuid.UUID
	IsPublic bool
	Content  []byte
}

// Service owns FileNode lifecycle. Byte persistence is delegated to the
// blob store; image uploads are handed to the job queue after commit.
type Service struct {
	db    *common.Database
	blobs storage.BlobStore
	jobs  JobQueue
}

// NewService creates a new catalog service
func NewService(db *common.Database, blobs storage.BlobStore, jobs JobQueue) *Service {
	return &Service{db: db, blobs: blobs, jobs: jobs}
}

// CreateNode validates and persists a new node. For non-folders the blob is
// written first so metadata never references bytes that do not exist; on a
// metadata failure the orphaned blob is removed again.
func (s *Service) CreateNode(ctx context.Context, params CreateNodeParams) (*types.FileNode, error) {
	if params.Name == "" {
		return nil, validationErr(msgMissingName)
	}
	if !params.Kind.Valid() {
		return nil, validationErr(msgInvalidType)
	}
	if params.Kind != types.KindFolder && params.Content == nil {
		return nil, validationErr(msgMissingData)
	}

	if params.ParentID != types.RootParentID {
		var parent types.FileNode
		err := s.db.WithContext(ctx).
			Where("id = ? AND owner_id = ?", params.ParentID, params.OwnerID).
			First(&parent).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, validationErr(msgParentNotFound)
			}
			return nil, fmt.Errorf("failed to look up parent: %w", err)
		}
		if parent.Kind != types.KindFolder {
			return nil, validationErr(msgParentNotFolder)
		}
	}

	node := &types.FileNode{
		OwnerID:  params.OwnerID,
		Name:     params.Name,
		Kind:     params.Kind,
		ParentID: params.ParentID,
		IsPublic: params.IsPublic,
	}

	if params.Kind != types.KindFolder {
		location, err := s.blobs.Write(ctx, params.Content)
		if err != nil {
			return nil, fmt.Errorf("failed to store content: %w", err)
		}
		node.StoragePath = location
	}

	if err := s.db.WithContext(ctx).Create(node).Error; err != nil {
		if node.StoragePath != "" {
			// Remove the orphaned blob; metadata is the source of truth.
			if delErr := s.blobs.Delete(ctx, node.StoragePath); delErr != nil {
				log.Error().Err(delErr).Str("location", node.StoragePath).
					Msg("failed to clean up blob after metadata failure")
			}
		}
		return nil, fmt.Errorf("failed to save node: %w", err)
	}

	if node.Kind == types.KindImage && s.jobs != nil {
		// Thumbnails are eventually available; an enqueue failure must not
		// fail the upload that already committed.
		if err := s.jobs.Enqueue(ctx, node.ID, node.OwnerID); err != nil {
			log.Error().Err(err).
				Str("file_id", node.ID.String()).
				Msg("failed to enqueue thumbnail job")
		}
	}

	log.Info().
		Str("node_id", node.ID.String()).
		Str("owner_id", node.OwnerID.String()).
		Str("kind", string(node.Kind)).
		Msg("node created")

	return node, nil
}

// GetNode returns the node if the requester owns it or it is public.
// Hidden nodes and missing ids produce the identical ErrNotFound.
func (s *Service) GetNode(ctx context.Context, id, requesterID uuid.UUID) (*types.FileNode, error) {
	return s.visibleNode(ctx, id, requesterID)
}

// ListNodes returns the requester's own children of parentID in creation
// order, PageSize entries per page. Pages past the end are empty, not an
// error.
func (s *Service) ListNodes(ctx context.Context, ownerID, parentID uuid.UUID, page int) ([]*types.FileNode, error) {
	if page < 0 {
		page = 0
	}

	var nodes []*types.FileNode
	err := s.db.WithContext(ctx).
		Where("owner_id = ? AND parent_id = ?", ownerID, parentID).
		Order("created_at ASC, id ASC").
		Offset(page * PageSize).
		Limit(PageSize).
		Find(&nodes).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list nodes: %w", err)
	}
	return nodes, nil
}

// SetVisibility flips the public flag. Only the owner may mutate; setting
// the current value again is a no-op success. Non-owners get the same
// ErrNotFound as a missing id.
func (s *Service) SetVisibility(ctx context.Context, id, requesterID uuid.UUID, public bool) (*types.FileNode, error) {
	var node types.FileNode
	err := s.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, requesterID).
		First(&node).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get node: %w", err)
	}

	if node.IsPublic == public {
		return &node, nil
	}

	if err := s.db.WithContext(ctx).Model(&node).Update("is_public", public).Error; err != nil {
		return nil, fmt.Errorf("failed to update visibility: %w", err)
	}
	node.IsPublic = public
	return &node, nil
}

// GetContent resolves visibility like GetNode and returns the bytes plus a
// Content-Type derived from the node name. requesterID is uuid.Nil for
// anonymous callers. width 0 reads the original; any other width reads the
// matching variant and yields ErrNotFound when it has not been derived.
func (s *Service) GetContent(ctx context.Context, id, requesterID uuid.UUID, width int) ([]byte, string, error) {
	node, err := s.visibleNode(ctx, id, requesterID)
	if err != nil {
		return nil, "", err
	}

	if node.Kind == types.KindFolder {
		return nil, "", validationErr(msgFolderContent)
	}

	var content []byte
	if width == 0 {
		content, err = s.blobs.Read(ctx, node.StoragePath)
	} else {
		content, err = s.blobs.ReadVariant(ctx, node.StoragePath, width)
	}
	if err != nil {
		if errors.Is(err, storage.ErrBlobNotFound) {
			return nil, "", ErrNotFound
		}
		return nil, "", fmt.Errorf("failed to read content: %w", err)
	}

	return content, utils.MimeTypeByName(node.Name), nil
}

// GetNodeForJob is the worker-side lookup: the node must exist and belong
// to the given owner, with no visibility shortcut.
func (s *Service) GetNodeForJob(ctx context.Context, fileID, ownerID uuid.UUID) (*types.FileNode, error) {
	var node types.FileNode
	err := s.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", fileID, ownerID).
		First(&node).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get node: %w", err)
	}
	return &node, nil
}

// CountFiles returns the total number of nodes.
func (s *Service) CountFiles(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&types.FileNode{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count files: %w", err)
	}
	return count, nil
}

// visibleNode applies the single read-visibility rule: owner or public.
func (s *Service) visibleNode(ctx context.Context, id, requesterID uuid.UUID) (*types.FileNode, error) {
	var node types.FileNode
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&node).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get node: %w", err)
	}

	if node.OwnerID != requesterID && !node.IsPublic {
		return nil, ErrNotFound
	}
	return &node, nil
}

package catalog

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/filedepot/filedepot/internal/common"
	"github.com/filedepot/filedepot/internal/storage"
	"github.com/filedepot/filedepot/pkg/types"
)

type recordingQueue struct {
	enqueued []uuid.UUID
	failWith error
}

func (q *recordingQueue) Enqueue(ctx context.Context, fileID, userID uuid.UUID) error {
	if q.failWith != nil {
		return q.failWith
	}
	q.enqueued = append(q.enqueued, fileID)
	return nil
}

func setupTestDB(t *testing.T) *common.Database {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&types.User{}, &types.FileNode{}, &types.ThumbnailJob{})
	require.NoError(t, err)

	return &common.Database{DB: db}
}

func setupTestService(t *testing.T) (*Service, *recordingQueue) {
	db := setupTestDB(t)
	blobs, err := storage.NewLocalBlobStore(t.TempDir())
	require.NoError(t, err)

	queue := &recordingQueue{}
	return NewService(db, blobs, queue), queue
}

func TestCreateNode_Validation(t *testing.T) {
	service, _ := setupTestService(t)
	ctx := context.Background()
	owner := uuid.New()

	tests := []struct {
		name    string
		params  CreateNodeParams
		wantMsg string
	}{
		{
			name:    "missing name",
			params:  CreateNodeParams{OwnerID: owner, Kind: types.KindFile, Content: []byte("x")},
			wantMsg: "Missing name",
		},
		{
			name:    "invalid kind",
			params:  CreateNodeParams{OwnerID: owner, Name: "a.txt", Kind: "symlink", Content: []byte("x")},
			wantMsg: "Missing type or invalid type",
		},
		{
			name:    "file without content",
			params:  CreateNodeParams{OwnerID: owner, Name: "a.txt", Kind: types.KindFile},
			wantMsg: "Missing data",
		},
		{
			name:    "image without content",
			params:  CreateNodeParams{OwnerID: owner, Name: "a.png", Kind: types.KindImage},
			wantMsg: "Missing data",
		},
		{
			name:    "unknown parent",
			params:  CreateNodeParams{OwnerID: owner, Name: "a.txt", Kind: types.KindFile, ParentID: uuid.New(), Content: []byte("x")},
			wantMsg: "Parent not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node, err := service.CreateNode(ctx, tt.params)
			assert.Nil(t, node)

			var ve *ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tt.wantMsg, ve.Error())
		})
	}
}

func TestCreateNode_FolderNeedsNoContent(t *testing.T) {
	service, queue := setupTestService(t)
	ctx := context.Background()
	owner := uuid.New()

	node, err := service.CreateNode(ctx, CreateNodeParams{
		OwnerID: owner,
		Name:    "documents",
		Kind:    types.KindFolder,
	})
	require.NoError(t, err)
	assert.Equal(t, types.KindFolder, node.Kind)
	assert.Empty(t, node.StoragePath)
	assert.Empty(t, queue.enqueued)
}

func TestCreateNode_ParentMustBeFolder(t *testing.T) {
	service, _ := setupTestService(t)
	ctx := context.Background()
	owner := uuid.New()

	file, err := service.CreateNode(ctx, CreateNodeParams{
		OwnerID: owner,
		Name:    "notes.txt",
		Kind:    types.KindFile,
		Content: []byte("notes"),
	})
	require.NoError(t, err)

	node, err := service.CreateNode(ctx, CreateNodeParams{
		OwnerID:  owner,
		Name:     "child.txt",
		Kind:     types.KindFile,
		ParentID: file.ID,
		Content:  []byte("child"),
	})
	assert.Nil(t, node)

	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "Parent is not a folder", ve.Error())
}

func TestCreateNode_ParentOwnedBySomeoneElse(t *testing.T) {
	service, _ := setupTestService(t)
	ctx := context.Background()

	other := uuid.New()
	folder, err := service.CreateNode(ctx, CreateNodeParams{
		OwnerID: other,
		Name:    "theirs",
		Kind:    types.KindFolder,
	})
	require.NoError(t, err)

	_, err = service.CreateNode(ctx, CreateNodeParams{
		OwnerID:  uuid.New(),
		Name:     "mine.txt",
		Kind:     types.KindFile,
		ParentID: folder.ID,
		Content:  []byte("x"),
	})

	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "Parent not found", ve.Error())
}

func TestCreateNode_FileContentRoundTrip(t *testing.T) {
	service, queue := setupTestService(t)
	ctx := context.Background()
	owner := uuid.New()

	node, err := service.CreateNode(ctx, CreateNodeParams{
		OwnerID: owner,
		Name:    "hello.txt",
		Kind:    types.KindFile,
		Content: []byte("hello world"),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, node.StoragePath)
	assert.Empty(t, queue.enqueued, "plain files must not enqueue thumbnail jobs")

	content, mimeType, err := service.GetContent(ctx, node.ID, owner, 0)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello world"), content)
	assert.Contains(t, mimeType, "text/plain")
}

func TestCreateNode_ImageEnqueuesJob(t *testing.T) {
	service, queue := setupTestService(t)
	ctx := context.Background()
	owner := uuid.New()

	node, err := service.CreateNode(ctx, CreateNodeParams{
		OwnerID: owner,
		Name:    "photo.png",
		Kind:    types.KindImage,
		Content: []byte("not-really-a-png"),
	})
	require.NoError(t, err)

	require.Len(t, queue.enqueued, 1)
	assert.Equal(t, node.ID, queue.enqueued[0])
}

func TestCreateNode_EnqueueFailureDoesNotFailUpload(t *testing.T) {
	service, queue := setupTestService(t)
	queue.failWith = fmt.Errorf("queue down")
	ctx := context.Background()

	node, err := service.CreateNode(ctx, CreateNodeParams{
		OwnerID: uuid.New(),
		Name:    "photo.png",
		Kind:    types.KindImage,
		Content: []byte("bytes"),
	})
	require.NoError(t, err)
	assert.NotNil(t, node)
}

func TestGetNode_Visibility(t *testing.T) {
	service, _ := setupTestService(t)
	ctx := context.Background()
	owner := uuid.New()
	stranger := uuid.New()

	private, err := service.CreateNode(ctx, CreateNodeParams{
		OwnerID: owner, Name: "private.txt", Kind: types.KindFile, Content: []byte("x"),
	})
	require.NoError(t, err)

	public, err := service.CreateNode(ctx, CreateNodeParams{
		OwnerID: owner, Name: "public.txt", Kind: types.KindFile, Content: []byte("x"), IsPublic: true,
	})
	require.NoError(t, err)

	// Owner sees both.
	_, err = service.GetNode(ctx, private.ID, owner)
	assert.NoError(t, err)
	_, err = service.GetNode(ctx, public.ID, owner)
	assert.NoError(t, err)

	// Stranger sees only the public one.
	_, err = service.GetNode(ctx, public.ID, stranger)
	assert.NoError(t, err)
	_, err = service.GetNode(ctx, private.ID, stranger)
	assert.True(t, errors.Is(err, ErrNotFound))

	// A hidden node and a missing node are the same error.
	_, missingErr := service.GetNode(ctx, uuid.New(), stranger)
	_, hiddenErr := service.GetNode(ctx, private.ID, stranger)
	assert.Equal(t, missingErr, hiddenErr)
}

func TestListNodes_Pagination(t *testing.T) {
	service, _ := setupTestService(t)
	ctx := context.Background()
	owner := uuid.New()

	folder, err := service.CreateNode(ctx, CreateNodeParams{
		OwnerID: owner, Name: "bucket", Kind: types.KindFolder,
	})
	require.NoError(t, err)

	created := make([]uuid.UUID, 0, 25)
	for i := 0; i < 25; i++ {
		node, err := service.CreateNode(ctx, CreateNodeParams{
			OwnerID:  owner,
			Name:     fmt.Sprintf("file-%02d.txt", i),
			Kind:     types.KindFile,
			ParentID: folder.ID,
			Content:  []byte("x"),
		})
		require.NoError(t, err)
		created = append(created, node.ID)
	}

	page0, err := service.ListNodes(ctx, owner, folder.ID, 0)
	require.NoError(t, err)
	require.Len(t, page0, PageSize)
	for i, node := range page0 {
		assert.Equal(t, created[i], node.ID, "creation order must hold")
	}

	page1, err := service.ListNodes(ctx, owner, folder.ID, 1)
	require.NoError(t, err)
	require.Len(t, page1, 5)
	assert.Equal(t, created[20], page1[0].ID)

	page2, err := service.ListNodes(ctx, owner, folder.ID, 2)
	require.NoError(t, err)
	assert.Empty(t, page2)
}

func TestListNodes_OnlyOwnNodes(t *testing.T) {
	service, _ := setupTestService(t)
	ctx := context.Background()
	owner := uuid.New()
	other := uuid.New()

	_, err := service.CreateNode(ctx, CreateNodeParams{
		OwnerID: owner, Name: "mine.txt", Kind: types.KindFile, Content: []byte("x"), IsPublic: true,
	})
	require.NoError(t, err)

	nodes, err := service.ListNodes(ctx, other, types.RootParentID, 0)
	require.NoError(t, err)
	assert.Empty(t, nodes, "listing never includes other users' nodes, public or not")
}

func TestSetVisibility(t *testing.T) {
	service, _ := setupTestService(t)
	ctx := context.Background()
	owner := uuid.New()

	node, err := service.CreateNode(ctx, CreateNodeParams{
		OwnerID: owner, Name: "toggle.txt", Kind: types.KindFile, Content: []byte("x"),
	})
	require.NoError(t, err)

	published, err := service.SetVisibility(ctx, node.ID, owner, true)
	require.NoError(t, err)
	assert.True(t, published.IsPublic)

	// Idempotent: publishing again succeeds unchanged.
	again, err := service.SetVisibility(ctx, node.ID, owner, true)
	require.NoError(t, err)
	assert.True(t, again.IsPublic)

	unpublished, err := service.SetVisibility(ctx, node.ID, owner, false)
	require.NoError(t, err)
	assert.False(t, unpublished.IsPublic)

	// Non-owner gets the same not-found as a missing node.
	_, err = service.SetVisibility(ctx, node.ID, uuid.New(), true)
	assert.True(t, errors.Is(err, ErrNotFound))
	_, err = service.SetVisibility(ctx, uuid.New(), owner, true)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestGetContent_Folder(t *testing.T) {
	service, _ := setupTestService(t)
	ctx := context.Background()
	owner := uuid.New()

	folder, err := service.CreateNode(ctx, CreateNodeParams{
		OwnerID: owner, Name: "dir", Kind: types.KindFolder,
	})
	require.NoError(t, err)

	_, _, err = service.GetContent(ctx, folder.ID, owner, 0)
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "A folder doesn't have content", ve.Error())
}

func TestGetContent_AnonymousAccess(t *testing.T) {
	service, _ := setupTestService(t)
	ctx := context.Background()
	owner := uuid.New()

	private, err := service.CreateNode(ctx, CreateNodeParams{
		OwnerID: owner, Name: "secret.txt", Kind: types.KindFile, Content: []byte("hidden"),
	})
	require.NoError(t, err)

	public, err := service.CreateNode(ctx, CreateNodeParams{
		OwnerID: owner, Name: "open.txt", Kind: types.KindFile, Content: []byte("visible"), IsPublic: true,
	})
	require.NoError(t, err)

	// Anonymous callers pass uuid.Nil.
	content, _, err := service.GetContent(ctx, public.ID, uuid.Nil, 0)
	require.NoError(t, err)
	assert.Equal(t, []byte("visible"), content)

	_, _, err = service.GetContent(ctx, private.ID, uuid.Nil, 0)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestGetContent_VariantNotYetDerived(t *testing.T) {
	service, _ := setupTestService(t)
	ctx := context.Background()
	owner := uuid.New()

	image, err := service.CreateNode(ctx, CreateNodeParams{
		OwnerID: owner, Name: "photo.png", Kind: types.KindImage, Content: []byte("png-bytes"),
	})
	require.NoError(t, err)

	// The original is available immediately.
	content, _, err := service.GetContent(ctx, image.ID, owner, 0)
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), content)

	// Variants are eventually consistent: absent until the worker runs.
	_, _, err = service.GetContent(ctx, image.ID, owner, 250)
	assert.True(t, errors.Is(err, ErrNotFound))

	// A width the pipeline never derives is also just not found.
	_, _, err = service.GetContent(ctx, image.ID, owner, 777)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestGetNodeForJob(t *testing.T) {
	service, _ := setupTestService(t)
	ctx := context.Background()
	owner := uuid.New()

	node, err := service.CreateNode(ctx, CreateNodeParams{
		OwnerID: owner, Name: "photo.png", Kind: types.KindImage, Content: []byte("x"),
	})
	require.NoError(t, err)

	found, err := service.GetNodeForJob(ctx, node.ID, owner)
	require.NoError(t, err)
	assert.Equal(t, node.ID, found.ID)

	_, err = service.GetNodeForJob(ctx, node.ID, uuid.New())
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestCountFiles(t *testing.T) {
	service, _ := setupTestService(t)
	ctx := context.Background()

	count, err := service.CountFiles(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	for i := 0; i < 3; i++ {
		_, err := service.CreateNode(ctx, CreateNodeParams{
			OwnerID: uuid.New(), Name: fmt.Sprintf("f%d", i), Kind: types.KindFolder,
		})
		require.NoError(t, err)
	}

	count, err = service.CountFiles(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

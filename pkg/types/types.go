package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NodeKind classifies an entry in the file hierarchy.
type NodeKind string

const (
	KindFolder NodeKind = "folder"
	KindFile   NodeKind = "file"
	KindImage  NodeKind = "image"
)

// Valid reports whether k is one of the three supported kinds.
func (k NodeKind) Valid() bool {
	return k == KindFolder || k == KindFile || k == KindImage
}

// RootParentID is the sentinel parent of top-level nodes.
var RootParentID = uuid.Nil

// User represents a registered account.
type User struct {
	ID        uuid.UUID `json:"id" gorm:"primaryKey"`
	Email     string    `json:"email" gorm:"uniqueIndex;not null"`
	Password  string    `json:"-" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate generates a UUID for the user ID
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// FileNode is a folder, file or image in the hierarchy. Kind and ParentID
// are fixed at creation; only IsPublic mutates afterwards.
type FileNode struct {
	ID          uuid.UUID `json:"id" gorm:"primaryKey"`
	OwnerID     uuid.UUID `json:"user_id" gorm:"index;not null"`
	Name        string    `json:"name" gorm:"not null"`
	Kind        NodeKind  `json:"type" gorm:"not null"`
	ParentID    uuid.UUID `json:"parent_id" gorm:"index"`
	IsPublic    bool      `json:"is_public" gorm:"default:false"`
	StoragePath string    `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// BeforeCreate generates a UUID for the node ID
func (f *FileNode) BeforeCreate(tx *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}

// JobStatus is the lifecycle state of a thumbnail job.
type JobStatus string

const (
	JobQueued     JobStatus = "queued"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// ThumbnailJob records a unit of thumbnail derivation work. The queue
// carries the work itself; this row keeps terminal failures observable
// after the fact.
type ThumbnailJob struct {
	ID        uuid.UUID `json:"id" gorm:"primaryKey"`
	FileID    uuid.UUID `json:"file_id" gorm:"index;not null"`
	UserID    uuid.UUID `json:"user_id" gorm:"not null"`
	Status    JobStatus `json:"status" gorm:"not null"`
	Attempts  int       `json:"attempts" gorm:"default:0"`
	LastError string    `json:"last_error"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateUserRequest is the body of POST /users.
type CreateUserRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// CreateFileRequest is the body of POST /files. ParentID is either absent,
// "0" for the root, or a node UUID. Data is base64-encoded content.
type CreateFileRequest struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	ParentID string `json:"parentId"`
	IsPublic bool   `json:"isPublic"`
	Data     string `json:"data"`
}

// UserView is the public shape of a user.
type UserView struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
}

// NodeView is the public shape of a FileNode. The storage location never
// leaves the server; the root parent serializes as "0".
type NodeView struct {
	ID       uuid.UUID `json:"id"`
	UserID   uuid.UUID `json:"userId"`
	Name     string    `json:"name"`
	Type     NodeKind  `json:"type"`
	IsPublic bool      `json:"isPublic"`
	ParentID string    `json:"parentId"`
}

// NewNodeView builds the API view of a node.
func NewNodeView(n *FileNode) NodeView {
	parent := "0"
	if n.ParentID != RootParentID {
		parent = n.ParentID.String()
	}
	return NodeView{
		ID:       n.ID,
		UserID:   n.OwnerID,
		Name:     n.Name,
		Type:     n.Kind,
		IsPublic: n.IsPublic,
		ParentID: parent,
	}
}

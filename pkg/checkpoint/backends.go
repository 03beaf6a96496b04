package checkpoint

import (
	"context"
)

// Backend abstracts where job state is persisted. The batch command uses
// the file backend by default; Redis and S3 backends let distributed
// workers share progress.
type Backend interface {
	Save(ctx context.Context, job *Job) error
	Load(ctx context.Context, id string) (*Job, error)
	Delete(ctx context.Context, id string) error
	FindByInput(ctx context.Context, inputPath string) (*Job, error)
	Name() string
}

// FileBackend adapts Store to the Backend interface.
type FileBackend struct {
	store *Store
}

// NewFileBackend creates a file-based backend rooted at dir.
func NewFileBackend(dir string) (*FileBackend, error) {
	store, err := NewStore(dir)
	if err != nil {
		return nil, err
	}
	return &FileBackend{store: store}, nil
}

func (b *FileBackend) Save(_ context.Context, job *Job) error {
	return b.store.Save(job)
}

func (b *FileBackend) Load(_ context.Context, id string) (*Job, error) {
	return b.store.Load(id)
}

func (b *FileBackend) Delete(_ context.Context, id string) error {
	return b.store.Delete(id)
}

func (b *FileBackend) FindByInput(_ context.Context, inputPath string) (*Job, error) {
	return b.store.FindByInput(inputPath)
}

func (b *FileBackend) Name() string {
	return "file"
}

// ShouldSkip reports whether a completed job already exists for inputPath,
// meaning a resumed batch run can skip it.
func ShouldSkip(ctx context.Context, backend Backend, inputPath string) bool {
	job, err := backend.FindByInput(ctx, inputPath)
	if err != nil || job == nil {
		return false
	}
	return job.Done()
}

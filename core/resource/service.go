package resource

import (
	"io"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/cadenza-app/cadenza/core"
)

var (
	// errors
	ErrNotFound = errors.New("resource not found")

	nowFunc = time.Now // mockable
)

type (
	// FileStorage persists resource file contents under opaque keys.
	FileStorage interface {
		Save(key string, r io.Reader) (int64, error)
		Open(key string) (io.ReadCloser, error)
		Delete(key string) error
	}

	Repository interface {
		CreateResource(res Resource) (Resource, error)
		GetResourceByID(id string) (Resource, error)
		QueryAllResources(orderings ...core.DBOrdering) ([]Resource, error)
		UpdateResource(res Resource) (Resource, error)
		DeleteResourcesByID(ids ...string) error
	}

	Service struct {
		repo  Repository
		files FileStorage
	}
)

func NewService(repo Repository, files FileStorage) *Service {
	return &Service{repo: repo, files: files}
}

// Upload stores the file contents and records the resource. The storage key
// is derived from the resource ID so uploads can never clash.
func (svc *Service) Upload(uploadedBy string, nr NewResource, file io.Reader) (Resource, error) {
	now := nowFunc().UTC()
	res := Resource{
		ID:          uuid.New().String(),
		Title:       nr.Title,
		Description: nr.Description,
		Filename:    nr.Filename,
		ContentType: nr.ContentType,
		UploadedBy:  uploadedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	res.Path = path.Join("resources", res.ID, res.Filename)

	size, err := svc.files.Save(res.Path, file)
	if err != nil {
		return Resource{}, errors.Wrap(err, "saving resource file")
	}
	res.Size = size

	res, err = svc.repo.CreateResource(res)
	if err != nil {
		// do not leave the file orphaned
		_ = svc.files.Delete(res.Path)
		return Resource{}, err
	}
	return res, nil
}

func (svc *Service) Query(orderings ...core.DBOrdering) ([]Resource, error) {
	return svc.repo.QueryAllResources(orderings...)
}

func (svc *Service) GetByID(id string) (Resource, error) {
	return svc.repo.GetResourceByID(id)
}

// OpenFile returns the resource and a reader over its file contents.
// The caller closes the reader.
func (svc *Service) OpenFile(id string) (Resource, io.ReadCloser, error) {
	res, err := svc.repo.GetResourceByID(id)
	if err != nil {
		return Resource{}, nil, err
	}
	rc, err := svc.files.Open(res.Path)
	if err != nil {
		return Resource{}, nil, errors.Wrap(err, "opening resource file")
	}
	return res, rc, nil
}

func (svc *Service) Update(id string, ur UpdateResource) (Resource, error) {
	res, err := svc.repo.GetResourceByID(id)
	if err != nil {
		return Resource{}, err
	}
	if ur.Title != "" {
		res.Title = ur.Title
	}
	if ur.Description != nil {
		res.Description = core.CleanString(*ur.Description)
	}
	res.UpdatedAt = nowFunc().UTC()
	return svc.repo.UpdateResource(res)
}

// Delete removes the records and their files.
func (svc *Service) Delete(ids ...string) error {
	for _, id := range ids {
		res, err := svc.repo.GetResourceByID(id)
		if err != nil {
			return err
		}
		if err := svc.files.Delete(res.Path); err != nil {
			return errors.Wrap(err, "deleting resource file")
		}
	}
	return svc.repo.DeleteResourcesByID(ids...)
}

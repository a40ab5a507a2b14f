package core

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/JonMunkholm/nvl/internal/images"
	"github.com/JonMunkholm/nvl/internal/logging"
)

// FormState is the lifecycle state of the create/edit modal.
type FormState int

const (
	FormClosed FormState = iota
	FormOpen
	FormSubmitting
)

func (s FormState) String() string {
	switch s {
	case FormOpen:
		return "open"
	case FormSubmitting:
		return "submitting"
	default:
		return "closed"
	}
}

// Draft is the working copy held while the modal is open.
type Draft struct {
	Material
	PendingImage *images.File
}

// IsNew reports whether submitting the draft creates a record.
func (d Draft) IsNew() bool { return strings.TrimSpace(d.ID) == "" }

// MaterialWriter is the part of MaterialRepo the form and importer need.
type MaterialWriter interface {
	IDs(ctx context.Context) ([]string, error)
	Add(ctx context.Context, rows []Material) error
	Edit(ctx context.Context, m Material) error
}

// Refresher reloads a cache.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// ImageService validates, uploads and resolves material images.
type ImageService interface {
	Validate(f images.File) []string
	Upload(ctx context.Context, f images.File) (string, error)
	Resolve(ref string) string
}

// FormController drives the material create/edit modal:
//
//	closed ─Open─▶ open ─Submit─▶ submitting ─ok─▶ closed
//	                │                  └─error─▶ open
//	                └─Cancel─▶ closed
type FormController struct {
	repo   MaterialWriter
	store  Refresher
	images ImageService
	prefix string

	mu    sync.Mutex
	state FormState
	draft Draft
}

// NewFormController wires a controller to its collaborators.
func NewFormController(repo MaterialWriter, store Refresher, imgs ImageService) *FormController {
	return &FormController{repo: repo, store: store, images: imgs, prefix: MaterialIDPrefix}
}

// State returns the current state.
func (fc *FormController) State() FormState {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return fc.state
}

// Draft returns a copy of the working record.
func (fc *FormController) Draft() Draft {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return fc.draft
}

// Open starts a create (m == nil) or an edit prefilled from m.
func (fc *FormController) Open(m *Material) error {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	if fc.state == FormSubmitting {
		return ErrSubmitInProgress
	}
	fc.draft = Draft{}
	if m != nil {
		fc.draft.Material = *m
	}
	fc.state = FormOpen
	return nil
}

// SetFields updates the editable text fields. The id never changes here.
func (fc *FormController) SetFields(name, spec, note string) error {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	if err := fc.editable(); err != nil {
		return err
	}
	fc.draft.Name = strings.TrimSpace(name)
	fc.draft.Spec = strings.TrimSpace(spec)
	fc.draft.Note = strings.TrimSpace(note)
	return nil
}

// SelectImage validates f and keeps it as the pending image.
func (fc *FormController) SelectImage(f images.File) error {
	if problems := fc.images.Validate(f); len(problems) > 0 {
		return &images.InvalidImageError{Problems: problems}
	}

	fc.mu.Lock()
	defer fc.mu.Unlock()
	if err := fc.editable(); err != nil {
		return err
	}
	fc.draft.PendingImage = &f
	return nil
}

// Preview returns the image URL to show in the modal: the pending file as a
// data URL, else the stored reference resolved, else "".
func (fc *FormController) Preview() string {
	fc.mu.Lock()
	d := fc.draft
	fc.mu.Unlock()

	if d.PendingImage != nil {
		return images.DataURL(*d.PendingImage)
	}
	return fc.images.Resolve(d.Image)
}

// Cancel discards the draft.
func (fc *FormController) Cancel() error {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	if fc.state == FormSubmitting {
		return ErrSubmitInProgress
	}
	fc.state = FormClosed
	fc.draft = Draft{}
	return nil
}

// Validate checks the required fields of the current draft.
func (fc *FormController) Validate() FieldErrors {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return validateDraft(fc.draft)
}

func validateDraft(d Draft) FieldErrors {
	errs := FieldErrors{}
	if strings.TrimSpace(d.Name) == "" {
		errs["name"] = "Tên NVL is required"
	}
	if strings.TrimSpace(d.Spec) == "" {
		errs["spec"] = "Quy cách is required"
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// Submit saves the draft and closes the form.
//
// Validation errors and upload failures leave the form open with the draft
// intact. A create computes its id from a fresh fetch of existing ids.
// After the remote write, successful or not, the store is refreshed.
func (fc *FormController) Submit(ctx context.Context) (Material, error) {
	logger := logging.FromContext(ctx)

	fc.mu.Lock()
	if err := fc.editable(); err != nil {
		fc.mu.Unlock()
		return Material{}, err
	}
	if errs := validateDraft(fc.draft); errs != nil {
		fc.mu.Unlock()
		return Material{}, errs
	}
	fc.state = FormSubmitting
	draft := fc.draft
	fc.mu.Unlock()

	saved, err := fc.save(ctx, draft)

	fc.mu.Lock()
	defer fc.mu.Unlock()
	if err != nil {
		fc.state = FormOpen
		// keep an uploaded image so a retry does not upload it twice
		if saved.Image != "" && draft.PendingImage != nil {
			fc.draft.Image = saved.Image
			fc.draft.PendingImage = nil
		}
		logger.Warn("material form submit failed", "id", draft.ID, "error", err)
		return Material{}, err
	}
	fc.state = FormClosed
	fc.draft = Draft{}
	logger.Info("material saved", "id", saved.ID, "created", draft.IsNew())
	return saved, nil
}

func (fc *FormController) save(ctx context.Context, d Draft) (Material, error) {
	m := d.Material

	if d.PendingImage != nil {
		ref, err := fc.images.Upload(ctx, *d.PendingImage)
		if err != nil {
			return Material{}, fmt.Errorf("%w: %w", ErrImageUpload, err)
		}
		m.Image = ref
	}

	var writeErr error
	if d.IsNew() {
		ids, err := fc.repo.IDs(ctx)
		if err != nil {
			return m, fmt.Errorf("generate material id: %w", err)
		}
		m.ID = NextID(fc.prefix, ids)
		writeErr = fc.repo.Add(ctx, []Material{m})
	} else {
		writeErr = fc.repo.Edit(ctx, m)
	}

	if err := fc.store.Refresh(ctx); err != nil {
		logging.FromContext(ctx).Warn("refresh after save failed", "error", err)
	}

	if writeErr != nil {
		if d.IsNew() {
			m.ID = ""
		}
		return m, writeErr
	}
	return m, nil
}

// editable must be called with mu held.
func (fc *FormController) editable() error {
	switch fc.state {
	case FormSubmitting:
		return ErrSubmitInProgress
	case FormClosed:
		return ErrFormClosed
	}
	return nil
}

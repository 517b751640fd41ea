package lead

import (
	"net/mail"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/cadenza-app/cadenza/core"
)

var (
	// errors
	ErrNotFound = errors.New("lead not found")

	leadStatusTag  = "leadstatus"
	leadStatusText = "invalid lead status"
)

func init() {
	_ = core.Validate.RegisterValidation(leadStatusTag, leadStatusValidation)
	core.RegisterCustomTranslation(leadStatusTag, leadStatusText)
}

// leadStatusValidation checks that the provided status is a known one.
func leadStatusValidation(fl validator.FieldLevel) bool {
	status := fl.Field().String()
	all := append([]string(nil), AllStatuses...)
	sort.Strings(all)
	if idx := sort.SearchStrings(all, status); idx < len(all) {
		return all[idx] == status
	}
	return false
}

type (
	Repository interface {
		CreateLead(ld Lead) (Lead, error)
		QueryAllLeads(orderings ...core.DBOrdering) ([]Lead, error)
		GetLeadByID(id string) (Lead, error)
		// FilterLeads applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of
		// Lead.ParentName, Lead.ChildName or Lead.Email.
		FilterLeads(filter QueryFilter, orderings ...core.DBOrdering) ([]Lead, error)
		UpdateLead(ld Lead) (Lead, error)
		DeleteLeadsByID(ids ...string) error
	}

	Service struct {
		repo    Repository
		mailSvc core.EmailService
	}
)

func NewService(repo Repository, mailSvc core.EmailService) *Service {
	return &Service{repo: repo, mailSvc: mailSvc}
}

// Create stores a new enquiry and notifies the staff mailbox.
func (svc *Service) Create(nl NewLead) (Lead, error) {
	now := time.Now().UTC()
	ld := Lead{
		ID:         uuid.New().String(),
		ParentName: nl.ParentName,
		Email:      nl.Email,
		Phone:      nl.Phone,
		ChildName:  nl.ChildName,
		Instrument: nl.Instrument,
		Note:       nl.Note,
		Status:     StatusNew,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	ld, err := svc.repo.CreateLead(ld)
	if err != nil {
		return Lead{}, err
	}

	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{core.Conf.StaffEmail},
		Subject:      "New enquiry: " + ld.ParentName,
		TemplateName: "new-lead",
		TemplateData: struct{ Lead Lead }{ld},
	})
	return ld, nil
}

func (svc *Service) Query(filter *QueryFilter, orderings ...core.DBOrdering) ([]Lead, error) {
	if filter == nil || filter.IsEmpty() {
		return svc.repo.QueryAllLeads(orderings...)
	}
	return svc.repo.FilterLeads(*filter, orderings...)
}

func (svc *Service) GetByID(id string) (Lead, error) {
	return svc.repo.GetLeadByID(id)
}

// Update applies an UpdateLead on top of the stored lead.
func (svc *Service) Update(id string, ul UpdateLead) (Lead, error) {
	ld, err := svc.repo.GetLeadByID(id)
	if err != nil {
		return Lead{}, err
	}
	if ul.Status != "" {
		if !CanTransition(ld.Status, ul.Status) {
			return Lead{}, core.NewValidationError(nil, core.FieldError{
				Field: "status",
				Error: "cannot move lead from " + ld.Status + " to " + ul.Status,
			})
		}
		ld.Status = ul.Status
	}
	if ul.AssigneeID != nil {
		if *ul.AssigneeID == "" {
			ld.AssigneeID = null.String{}
		} else {
			ld.AssigneeID = null.StringFrom(*ul.AssigneeID)
		}
	}
	if ul.Note != "" {
		ld.Note = ul.Note
	}
	ld.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateLead(ld)
}

func (svc *Service) Delete(ids ...string) error {
	return svc.repo.DeleteLeadsByID(ids...)
}

package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/neomorfeo/reportcycle/internal/app"
	"github.com/neomorfeo/reportcycle/internal/domain"
)

// TenantResponse is the API representation of a tenant.
type TenantResponse struct {
	ID                string `json:"id" doc:"Unique identifier"`
	Name              string `json:"name" doc:"Company name printed on statements"`
	Slug              string `json:"slug" doc:"URL-friendly identifier, prefix of artifact names"`
	ContactEmail      string `json:"contact_email,omitempty" doc:"Recipient of reminder and upload mails"`
	Status            string `json:"status" doc:"Registry status"`
	DispatchDay       int    `json:"dispatch_day" doc:"Day of month the cycle runs"`
	LastDispatchedDay *int   `json:"last_dispatched_day,omitempty" doc:"Day of month of the last completed cycle"`
	CreatedAt         string `json:"created_at" doc:"Creation timestamp (ISO 8601)"`
	UpdatedAt         string `json:"updated_at" doc:"Last update timestamp (ISO 8601)"`
}

func toTenantResponse(t domain.Tenant) TenantResponse {
	return TenantResponse{
		ID:                t.ID,
		Name:              t.Name,
		Slug:              t.Slug,
		ContactEmail:      t.ContactEmail,
		Status:            string(t.Status),
		DispatchDay:       t.DispatchDay,
		LastDispatchedDay: t.LastDispatchedDay,
		CreatedAt:         t.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:         t.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func toTenantResponses(tenants []domain.Tenant) []TenantResponse {
	resp := make([]TenantResponse, len(tenants))
	for i, t := range tenants {
		resp[i] = toTenantResponse(t)
	}
	return resp
}

// --- Create Tenant ---

type CreateTenantInput struct {
	Body struct {
		Name         string `json:"name" minLength:"1" maxLength:"255" doc:"Company name"`
		Slug         string `json:"slug" minLength:"1" maxLength:"100" pattern:"^[a-z0-9]+(?:-[a-z0-9]+)*$" doc:"URL-friendly identifier (lowercase, hyphens)"`
		ContactEmail string `json:"contact_email,omitempty" format:"email" doc:"Contact email"`
		DispatchDay  int    `json:"dispatch_day" minimum:"1" maximum:"31" doc:"Day of month the cycle runs"`
	}
}

type CreateTenantOutput struct {
	Body TenantResponse
}

// --- Get Tenant ---

type GetTenantInput struct {
	ID string `path:"id" doc:"Tenant ID"`
}

type GetTenantOutput struct {
	Body TenantResponse
}

// --- List Tenants ---

type ListTenantsInput struct {
	Status string `query:"status" required:"false" enum:"active,suspended,inactive" doc:"Filter by status"`
	Limit  int    `query:"limit" required:"false" default:"50" minimum:"1" maximum:"1000" doc:"Max results"`
	Offset int    `query:"offset" required:"false" default:"0" minimum:"0" doc:"Pagination offset"`
}

type ListTenantsOutput struct {
	Body []TenantResponse
}

// --- Due Tenants ---

type DueTenantsInput struct {
	Date string `query:"date" required:"false" doc:"Cycle date (YYYY-MM-DD), defaults to today"`
}

type DueTenantsOutput struct {
	Body []TenantResponse
}

// --- Dispatch State ---

type DispatchStateInput struct {
	ID   string `path:"id" doc:"Tenant ID"`
	Body struct {
		LastDispatchedDay int `json:"last_dispatched_day" minimum:"1" maximum:"31" doc:"Day of month of the last completed cycle"`
	}
}

type DispatchStateOutput struct {
	Body TenantResponse
}

// --- Status ---

type StatusInput struct {
	ID   string `path:"id" doc:"Tenant ID"`
	Body struct {
		Status string `json:"status" enum:"active,suspended,inactive" doc:"New registry status"`
	}
}

type StatusOutput struct {
	Body TenantResponse
}

// --- Reports ---

type RequestReportInput struct {
	Body struct {
		Tenant    string   `json:"tenant" minLength:"1" doc:"Tenant slug"`
		WorkerIDs []string `json:"worker_ids" minItems:"1" doc:"Workers to produce statements for"`
		Start     string   `json:"start" doc:"First day (YYYY-MM-DD)"`
		End       string   `json:"end" doc:"Last day (YYYY-MM-DD), inclusive"`
	}
}

type RequestReportOutput struct {
	Body struct {
		JobID string `json:"job_id" doc:"Queue job identifier"`
	}
}

// Register adds all report cycle API routes to the Huma API.
func Register(api huma.API, svc *app.ReportService) {
	huma.Register(api, huma.Operation{
		OperationID: "create-tenant",
		Method:      http.MethodPost,
		Path:        "/api/v1/tenants",
		Summary:     "Register a tenant",
		Tags:        []string{"Tenants"},
	}, func(ctx context.Context, input *CreateTenantInput) (*CreateTenantOutput, error) {
		tenant, err := svc.CreateTenant(ctx, input.Body.Name, input.Body.Slug, input.Body.ContactEmail, input.Body.DispatchDay)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &CreateTenantOutput{Body: toTenantResponse(tenant)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-tenants",
		Method:      http.MethodGet,
		Path:        "/api/v1/tenants",
		Summary:     "List tenants",
		Tags:        []string{"Tenants"},
	}, func(ctx context.Context, input *ListTenantsInput) (*ListTenantsOutput, error) {
		filter := domain.ListFilter{
			Limit:  input.Limit,
			Offset: input.Offset,
		}
		if input.Status != "" {
			s := domain.Status(input.Status)
			filter.Status = &s
		}

		tenants, err := svc.ListTenants(ctx, filter)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &ListTenantsOutput{Body: toTenantResponses(tenants)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "due-tenants",
		Method:      http.MethodGet,
		Path:        "/api/v1/tenants/due",
		Summary:     "List tenants whose cycle runs on a date",
		Tags:        []string{"Tenants"},
	}, func(ctx context.Context, input *DueTenantsInput) (*DueTenantsOutput, error) {
		var date time.Time
		if input.Date != "" {
			var err error
			if date, err = svc.ParseDate("date", input.Date); err != nil {
				return nil, toHumaError(err)
			}
		}

		tenants, err := svc.DueTenants(ctx, date)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &DueTenantsOutput{Body: toTenantResponses(tenants)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-tenant",
		Method:      http.MethodGet,
		Path:        "/api/v1/tenants/{id}",
		Summary:     "Get a tenant by ID",
		Tags:        []string{"Tenants"},
	}, func(ctx context.Context, input *GetTenantInput) (*GetTenantOutput, error) {
		tenant, err := svc.GetTenant(ctx, input.ID)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &GetTenantOutput{Body: toTenantResponse(tenant)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-dispatch-state",
		Method:      http.MethodPut,
		Path:        "/api/v1/tenants/{id}/dispatch-state",
		Summary:     "Record the last dispatched day of a tenant",
		Tags:        []string{"Tenants"},
	}, func(ctx context.Context, input *DispatchStateInput) (*DispatchStateOutput, error) {
		tenant, err := svc.UpdateDispatchState(ctx, input.ID, input.Body.LastDispatchedDay)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &DispatchStateOutput{Body: toTenantResponse(tenant)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-tenant-status",
		Method:      http.MethodPut,
		Path:        "/api/v1/tenants/{id}/status",
		Summary:     "Change the registry status of a tenant",
		Tags:        []string{"Tenants"},
	}, func(ctx context.Context, input *StatusInput) (*StatusOutput, error) {
		tenant, err := svc.SetTenantStatus(ctx, input.ID, domain.Status(input.Body.Status))
		if err != nil {
			return nil, toHumaError(err)
		}
		return &StatusOutput{Body: toTenantResponse(tenant)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "request-report",
		Method:        http.MethodPost,
		Path:          "/api/v1/reports",
		Summary:       "Queue revisioned statements for selected workers",
		Tags:          []string{"Reports"},
		DefaultStatus: http.StatusAccepted,
	}, func(ctx context.Context, input *RequestReportInput) (*RequestReportOutput, error) {
		start, err := svc.ParseDate("start", input.Body.Start)
		if err != nil {
			return nil, toHumaError(err)
		}
		end, err := svc.ParseDate("end", input.Body.End)
		if err != nil {
			return nil, toHumaError(err)
		}

		id, err := svc.RequestReport(ctx, domain.OnDemandRequest{
			TenantSlug: input.Body.Tenant,
			WorkerIDs:  input.Body.WorkerIDs,
			Start:      start,
			End:        end,
		})
		if err != nil {
			return nil, toHumaError(err)
		}

		out := &RequestReportOutput{}
		out.Body.JobID = id
		return out, nil
	})
}

// toHumaError translates domain errors to Huma HTTP errors.
func toHumaError(err error) error {
	if errors.Is(err, domain.ErrTenantNotFound) {
		return huma.Error404NotFound("tenant not found")
	}

	var slugErr *domain.SlugConflictError
	if errors.As(err, &slugErr) {
		return huma.Error409Conflict(slugErr.Error())
	}

	var cfgErr *domain.ConfigurationError
	if errors.As(err, &cfgErr) {
		return huma.Error422UnprocessableEntity(cfgErr.Error())
	}

	return huma.Error500InternalServerError("internal server error")
}

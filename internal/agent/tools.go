package agent

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"

	"planora/internal/models"
	"planora/internal/planner"
)

// Registry produces the tool set for an agent type. Every tool closes over
// the caller's AuthContext at binding time, and every tool body re-checks the
// model-supplied identifiers against that bound scope before touching data,
// so a forged id degrades to a structured forbidden result instead of a read.
type Registry struct {
	planner *planner.Service
	search  tool.InvokableTool
}

func NewRegistry(p *planner.Service) *Registry {
	return &Registry{
		planner: p,
		search:  initWebSearch(),
	}
}

// ToolsFor returns the capabilities available to the agent type, each bound
// to auth. An unknown agent type yields no tools rather than an error; the
// conversation proceeds tool-less.
func (r *Registry) ToolsFor(agentType models.AgentType, auth AuthContext) []tool.BaseTool {
	var tools []tool.BaseTool
	switch agentType {
	case models.AgentClient:
		tools = r.eventTools(auth)
	case models.AgentVenueGeneral:
		tools = r.venueTools(auth)
	case models.AgentVenueEvent:
		tools = append(r.eventTools(auth), r.venueProfileTool(auth))
	default:
		return nil
	}
	if r.search != nil {
		tools = append(tools, r.search)
	}
	return tools
}

func (r *Registry) eventTools(auth AuthContext) []tool.BaseTool {
	b := &eventToolSet{reg: r, auth: auth}
	return []tool.BaseTool{
		b.overviewTool(),
		b.listTasksTool(),
		b.addTaskTool(),
		b.completeTaskTool(),
		b.guestSummaryTool(),
	}
}

func (r *Registry) venueTools(auth AuthContext) []tool.BaseTool {
	b := &venueToolSet{reg: r, auth: auth}
	return []tool.BaseTool{
		r.venueProfileTool(auth),
		b.upcomingEventsTool(),
		b.listInquiriesTool(),
		b.updateInquiryTool(),
	}
}

func (r *Registry) venueProfileTool(auth AuthContext) tool.BaseTool {
	b := &venueToolSet{reg: r, auth: auth}
	return b.profileTool()
}

// emit marshals payload, records the call through the turn recorder if one
// is attached, and returns the JSON for the model.
func emit(ctx context.Context, name string, params, payload any) (string, error) {
	out, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode %s result: %w", name, err)
	}
	if rec, ok := TurnRecorderFromContext(ctx); ok {
		in, _ := json.Marshal(params)
		rec.Record(name, in, out)
	}
	return string(out), nil
}

func forbiddenPayload(detail string) map[string]string {
	return map[string]string{"error": "forbidden", "detail": detail}
}

func failurePayload(detail string) map[string]string {
	return map[string]string{"error": detail}
}

// --- event-scoped tools ---

// eventToolSet binds event capabilities to one caller. mutating tools write
// through ownership-scoped queries keyed by the bound event, never by the
// model-supplied id.
type eventToolSet struct {
	reg  *Registry
	auth AuthContext
}

// denies reports whether the model-supplied event id falls outside the
// bound scope. Empty input is tolerated and coerced to the bound event.
func (t *eventToolSet) denies(eventID string) bool {
	return eventID != "" && eventID != t.auth.Scope.EventID
}

type eventIDParams struct {
	EventID string `json:"event_id"`
}

func (t *eventToolSet) overviewTool() tool.BaseTool {
	info := &schema.ToolInfo{
		Name: "get_event_overview",
		Desc: "Get the event's details: name, date, expected guests, budget, status and guest RSVP totals.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"event_id": {
				Desc:     "ID of the event to describe.",
				Type:     schema.String,
				Required: true,
			},
		}),
	}
	return utils.NewTool(info, t.overview)
}

func (t *eventToolSet) overview(ctx context.Context, params *eventIDParams) (string, error) {
	if params != nil && t.denies(params.EventID) {
		return emit(ctx, "get_event_overview", params, forbiddenPayload("event is outside your scope"))
	}
	event, err := t.loadEvent(ctx)
	if err != nil {
		return emit(ctx, "get_event_overview", params, failurePayload("event not found"))
	}
	payload := map[string]any{"event": event}
	if guests, err := t.reg.planner.GuestSummary(ctx, event.ID); err == nil {
		payload["guests"] = guests
	}
	return emit(ctx, "get_event_overview", params, payload)
}

// loadEvent reads the bound event via whichever ownership relation the
// caller holds.
func (t *eventToolSet) loadEvent(ctx context.Context) (*models.Event, error) {
	if t.auth.Identity.Persona == models.PersonaVenue {
		return t.reg.planner.GetEventForVenue(ctx, t.auth.Scope.EventID, t.auth.Scope.VenueID)
	}
	return t.reg.planner.GetEventForClient(ctx, t.auth.Scope.EventID, t.auth.Identity.UserID)
}

// verifyEvent confirms the bound event still exists and is owned by the
// caller before a write.
func (t *eventToolSet) verifyEvent(ctx context.Context) error {
	_, err := t.loadEvent(ctx)
	return err
}

type listTasksParams struct {
	EventID string `json:"event_id"`
	Status  string `json:"status,omitempty"`
}

func (t *eventToolSet) listTasksTool() tool.BaseTool {
	info := &schema.ToolInfo{
		Name: "list_tasks",
		Desc: "List the event's planning tasks, optionally filtered by status.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"event_id": {
				Desc:     "ID of the event.",
				Type:     schema.String,
				Required: true,
			},
			"status": {
				Desc:     "Filter by status: pending or done. Omit for all tasks.",
				Type:     schema.String,
				Required: false,
			},
		}),
	}
	return utils.NewTool(info, t.listTasks)
}

func (t *eventToolSet) listTasks(ctx context.Context, params *listTasksParams) (string, error) {
	if params != nil && t.denies(params.EventID) {
		return emit(ctx, "list_tasks", params, forbiddenPayload("event is outside your scope"))
	}
	status := models.TaskStatus("")
	if params != nil {
		status = models.TaskStatus(params.Status)
	}
	if err := t.verifyEvent(ctx); err != nil {
		return emit(ctx, "list_tasks", params, failurePayload("event not found"))
	}
	tasks, err := t.reg.planner.ListTasks(ctx, t.auth.Scope.EventID, status)
	if err != nil {
		return emit(ctx, "list_tasks", params, failurePayload("could not load tasks"))
	}
	return emit(ctx, "list_tasks", params, map[string]any{"tasks": tasks})
}

type addTaskParams struct {
	EventID string `json:"event_id"`
	Title   string `json:"title"`
	DueDate string `json:"due_date,omitempty"`
}

func (t *eventToolSet) addTaskTool() tool.BaseTool {
	info := &schema.ToolInfo{
		Name: "add_task",
		Desc: "Add a planning task to the event. Mutates the task list.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"event_id": {
				Desc:     "ID of the event.",
				Type:     schema.String,
				Required: true,
			},
			"title": {
				Desc:     "Short description of the task.",
				Type:     schema.String,
				Required: true,
			},
			"due_date": {
				Desc:     "Optional due date, formatted YYYY-MM-DD.",
				Type:     schema.String,
				Required: false,
			},
		}),
	}
	return utils.NewTool(info, t.addTask)
}

func (t *eventToolSet) addTask(ctx context.Context, params *addTaskParams) (string, error) {
	if params == nil || strings.TrimSpace(params.Title) == "" {
		return emit(ctx, "add_task", params, failurePayload("title is required"))
	}
	if t.denies(params.EventID) {
		return emit(ctx, "add_task", params, forbiddenPayload("event is outside your scope"))
	}
	if err := t.verifyEvent(ctx); err != nil {
		return emit(ctx, "add_task", params, failurePayload("event not found"))
	}
	var due *time.Time
	if params.DueDate != "" {
		parsed, err := time.Parse("2006-01-02", params.DueDate)
		if err != nil {
			return emit(ctx, "add_task", params, failurePayload("due_date must be formatted YYYY-MM-DD"))
		}
		due = &parsed
	}
	task, err := t.reg.planner.AddTask(ctx, t.auth.Scope.EventID, strings.TrimSpace(params.Title), due)
	if err != nil {
		return emit(ctx, "add_task", params, failurePayload("could not add task"))
	}
	return emit(ctx, "add_task", params, map[string]any{"task": task})
}

type completeTaskParams struct {
	EventID string `json:"event_id"`
	TaskID  string `json:"task_id"`
}

func (t *eventToolSet) completeTaskTool() tool.BaseTool {
	info := &schema.ToolInfo{
		Name: "complete_task",
		Desc: "Mark one of the event's tasks as done. Mutates the task list.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"event_id": {
				Desc:     "ID of the event.",
				Type:     schema.String,
				Required: true,
			},
			"task_id": {
				Desc:     "ID of the task to complete.",
				Type:     schema.String,
				Required: true,
			},
		}),
	}
	return utils.NewTool(info, t.completeTask)
}

func (t *eventToolSet) completeTask(ctx context.Context, params *completeTaskParams) (string, error) {
	if params == nil || params.TaskID == "" {
		return emit(ctx, "complete_task", params, failurePayload("task_id is required"))
	}
	if t.denies(params.EventID) {
		return emit(ctx, "complete_task", params, forbiddenPayload("event is outside your scope"))
	}
	if err := t.verifyEvent(ctx); err != nil {
		return emit(ctx, "complete_task", params, failurePayload("event not found"))
	}
	if err := t.reg.planner.CompleteTask(ctx, t.auth.Scope.EventID, params.TaskID); err != nil {
		return emit(ctx, "complete_task", params, failurePayload("task not found"))
	}
	return emit(ctx, "complete_task", params, map[string]any{"completed": params.TaskID})
}

func (t *eventToolSet) guestSummaryTool() tool.BaseTool {
	info := &schema.ToolInfo{
		Name: "guest_summary",
		Desc: "Get RSVP totals for the event's guest list.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"event_id": {
				Desc:     "ID of the event.",
				Type:     schema.String,
				Required: true,
			},
		}),
	}
	return utils.NewTool(info, t.guestSummary)
}

func (t *eventToolSet) guestSummary(ctx context.Context, params *eventIDParams) (string, error) {
	if params != nil && t.denies(params.EventID) {
		return emit(ctx, "guest_summary", params, forbiddenPayload("event is outside your scope"))
	}
	if err := t.verifyEvent(ctx); err != nil {
		return emit(ctx, "guest_summary", params, failurePayload("event not found"))
	}
	guests, err := t.reg.planner.GuestSummary(ctx, t.auth.Scope.EventID)
	if err != nil {
		return emit(ctx, "guest_summary", params, failurePayload("could not load guest summary"))
	}
	return emit(ctx, "guest_summary", params, map[string]any{"guests": guests})
}

// --- venue-scoped tools ---

type venueToolSet struct {
	reg  *Registry
	auth AuthContext
}

func (t *venueToolSet) denies(venueID string) bool {
	return venueID != "" && venueID != t.auth.Scope.VenueID
}

func (t *venueToolSet) loadVenue(ctx context.Context) (*models.Venue, error) {
	return t.reg.planner.GetVenueForOwner(ctx, t.auth.Scope.VenueID, t.auth.Identity.UserID)
}

type venueIDParams struct {
	VenueID string `json:"venue_id"`
}

func (t *venueToolSet) profileTool() tool.BaseTool {
	info := &schema.ToolInfo{
		Name: "get_venue_profile",
		Desc: "Get the venue's profile: name, address, capacity and description.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"venue_id": {
				Desc:     "ID of the venue.",
				Type:     schema.String,
				Required: true,
			},
		}),
	}
	return utils.NewTool(info, t.profile)
}

func (t *venueToolSet) profile(ctx context.Context, params *venueIDParams) (string, error) {
	if params != nil && t.denies(params.VenueID) {
		return emit(ctx, "get_venue_profile", params, forbiddenPayload("venue is outside your scope"))
	}
	venue, err := t.loadVenue(ctx)
	if err != nil {
		return emit(ctx, "get_venue_profile", params, failurePayload("venue not found"))
	}
	return emit(ctx, "get_venue_profile", params, map[string]any{"venue": venue})
}

type upcomingEventsParams struct {
	VenueID string `json:"venue_id"`
	Limit   int    `json:"limit,omitempty"`
}

func (t *venueToolSet) upcomingEventsTool() tool.BaseTool {
	info := &schema.ToolInfo{
		Name: "list_upcoming_events",
		Desc: "List events booked at the venue with dates in the future.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"venue_id": {
				Desc:     "ID of the venue.",
				Type:     schema.String,
				Required: true,
			},
			"limit": {
				Desc:     "Maximum number of events to return, default 8.",
				Type:     schema.Integer,
				Required: false,
			},
		}),
	}
	return utils.NewTool(info, t.upcomingEvents)
}

func (t *venueToolSet) upcomingEvents(ctx context.Context, params *upcomingEventsParams) (string, error) {
	if params != nil && t.denies(params.VenueID) {
		return emit(ctx, "list_upcoming_events", params, forbiddenPayload("venue is outside your scope"))
	}
	if _, err := t.loadVenue(ctx); err != nil {
		return emit(ctx, "list_upcoming_events", params, failurePayload("venue not found"))
	}
	limit := upcomingEventsLimit
	if params != nil && params.Limit > 0 {
		limit = params.Limit
	}
	events, err := t.reg.planner.ListUpcomingEvents(ctx, t.auth.Scope.VenueID, limit)
	if err != nil {
		return emit(ctx, "list_upcoming_events", params, failurePayload("could not load events"))
	}
	return emit(ctx, "list_upcoming_events", params, map[string]any{"events": events})
}

type listInquiriesParams struct {
	VenueID string `json:"venue_id"`
	Status  string `json:"status,omitempty"`
}

func (t *venueToolSet) listInquiriesTool() tool.BaseTool {
	info := &schema.ToolInfo{
		Name: "list_booking_inquiries",
		Desc: "List booking inquiries received by the venue, optionally filtered by status.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"venue_id": {
				Desc:     "ID of the venue.",
				Type:     schema.String,
				Required: true,
			},
			"status": {
				Desc:     "Filter by status: new, reviewed, accepted or declined. Omit for all.",
				Type:     schema.String,
				Required: false,
			},
		}),
	}
	return utils.NewTool(info, t.listInquiries)
}

func (t *venueToolSet) listInquiries(ctx context.Context, params *listInquiriesParams) (string, error) {
	if params != nil && t.denies(params.VenueID) {
		return emit(ctx, "list_booking_inquiries", params, forbiddenPayload("venue is outside your scope"))
	}
	if _, err := t.loadVenue(ctx); err != nil {
		return emit(ctx, "list_booking_inquiries", params, failurePayload("venue not found"))
	}
	status := models.InquiryStatus("")
	if params != nil {
		status = models.InquiryStatus(params.Status)
	}
	inquiries, err := t.reg.planner.ListBookingInquiries(ctx, t.auth.Scope.VenueID, status)
	if err != nil {
		return emit(ctx, "list_booking_inquiries", params, failurePayload("could not load inquiries"))
	}
	return emit(ctx, "list_booking_inquiries", params, map[string]any{"inquiries": inquiries})
}

type updateInquiryParams struct {
	VenueID   string `json:"venue_id"`
	InquiryID string `json:"inquiry_id"`
	Status    string `json:"status"`
}

func (t *venueToolSet) updateInquiryTool() tool.BaseTool {
	info := &schema.ToolInfo{
		Name: "update_inquiry_status",
		Desc: "Set a booking inquiry's status to reviewed, accepted or declined. Mutates the inquiry.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"venue_id": {
				Desc:     "ID of the venue.",
				Type:     schema.String,
				Required: true,
			},
			"inquiry_id": {
				Desc:     "ID of the inquiry to update.",
				Type:     schema.String,
				Required: true,
			},
			"status": {
				Desc:     "New status: reviewed, accepted or declined.",
				Type:     schema.String,
				Required: true,
			},
		}),
	}
	return utils.NewTool(info, t.updateInquiry)
}

func (t *venueToolSet) updateInquiry(ctx context.Context, params *updateInquiryParams) (string, error) {
	if params == nil || params.InquiryID == "" {
		return emit(ctx, "update_inquiry_status", params, failurePayload("inquiry_id is required"))
	}
	if t.denies(params.VenueID) {
		return emit(ctx, "update_inquiry_status", params, forbiddenPayload("venue is outside your scope"))
	}
	status := models.InquiryStatus(params.Status)
	switch status {
	case models.InquiryReviewed, models.InquiryAccepted, models.InquiryDeclined:
	default:
		return emit(ctx, "update_inquiry_status", params, failurePayload("status must be reviewed, accepted or declined"))
	}
	if _, err := t.loadVenue(ctx); err != nil {
		return emit(ctx, "update_inquiry_status", params, failurePayload("venue not found"))
	}
	err := t.reg.planner.UpdateInquiryStatus(ctx, t.auth.Scope.VenueID, params.InquiryID, status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return emit(ctx, "update_inquiry_status", params, failurePayload("inquiry not found"))
		}
		return emit(ctx, "update_inquiry_status", params, failurePayload("could not update inquiry"))
	}
	return emit(ctx, "update_inquiry_status", params, map[string]any{"inquiry_id": params.InquiryID, "status": status})
}

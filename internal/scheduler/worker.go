package scheduler

import (
	"context"
	"fmt"
	"time"

	campdomain "hospital_crm_backend/internal/campaigns/domain"
	"hospital_crm_backend/internal/campaigns/repository"
	campservice "hospital_crm_backend/internal/campaigns/service"
	camptransport "hospital_crm_backend/internal/campaigns/transport"
	"hospital_crm_backend/internal/dispatch"
	taskservice "hospital_crm_backend/internal/tasks/service"
	tmplservice "hospital_crm_backend/internal/templates/service"
	"hospital_crm_backend/platform/apperr"
	"hospital_crm_backend/platform/config"
	"hospital_crm_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// followUpWindow is how far ahead the reminder scan looks for due tasks.
const followUpWindow = 24 * time.Hour

// Dispatcher sends one rendered message, satisfied by dispatch.Router.
type Dispatcher interface {
	Send(ctx context.Context, msg dispatch.Message) (string, error)
}

type Worker struct {
	server     *asynq.Server
	mux        *asynq.ServeMux
	campaigns  *campservice.Service
	tasks      *taskservice.Service
	templates  *tmplservice.Service
	dispatcher Dispatcher
	batchSize  int
	log        *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, campaigns *campservice.Service, tasks *taskservice.Service, templates *tmplservice.Service, dispatcher Dispatcher, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL)
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	batchSize := cfg.GetDispatchBatchSize()
	if batchSize < 1 {
		batchSize = 100
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:     server,
		mux:        mux,
		campaigns:  campaigns,
		tasks:      tasks,
		templates:  templates,
		dispatcher: dispatcher,
		batchSize:  batchSize,
		log:        log,
	}

	mux.HandleFunc(TaskCampaignDispatch, w.handleCampaignDispatch)
	mux.HandleFunc(TaskCampaignCompletionScan, w.handleCompletionScan)
	mux.HandleFunc(TaskCampaignDueLaunches, w.handleDueLaunches)
	mux.HandleFunc(TaskFollowUpScan, w.handleFollowUpScan)

	return w, nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

// handleCampaignDispatch drains the campaign's pending recipients in
// batches. Each send resolves the recipient to SENT or FAILED before
// the next one starts; a crash mid-run leaves only PENDING recipients
// behind, which the next dispatch run picks up.
func (w *Worker) handleCampaignDispatch(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseCampaignDispatchPayload(task)
	if err != nil {
		return err
	}
	campaignID, err := uuid.Parse(payload.CampaignID)
	if err != nil {
		return err
	}

	campaign, err := w.campaigns.GetByID(ctx, campaignID)
	if apperr.Is(err, apperr.KindNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if campaign.Status != string(campdomain.StatusRunning) {
		return nil
	}

	render := w.contentRenderer(ctx, campaign)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		batch, err := w.campaigns.ClaimDispatchBatch(ctx, campaignID, w.batchSize)
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			return nil
		}

		for _, rec := range batch {
			var providerRef *string
			msg, sendErr := buildMessage(campaign, campaignID, rec, render)
			if sendErr == nil {
				var ref string
				ref, sendErr = w.dispatcher.Send(ctx, msg)
				if sendErr == nil && ref != "" {
					providerRef = &ref
				}
			}
			if sendErr != nil {
				w.log.DispatchError(campaign.Channel, rec.Phone, sendErr)
			}
			if err := w.campaigns.RecordSendResult(ctx, rec.ID, providerRef, sendErr); err != nil {
				return err
			}
		}
	}
}

func (w *Worker) handleCompletionScan(ctx context.Context, _ *asynq.Task) error {
	ids, err := w.campaigns.RunningCampaignIDs(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err := w.campaigns.ResolveCompletion(ctx, id); err != nil {
			w.log.Error("campaign completion scan failed", "campaign_id", id.String(), "error", err)
		}
	}
	return nil
}

func (w *Worker) handleDueLaunches(ctx context.Context, _ *asynq.Task) error {
	return w.campaigns.ResolveDueLaunches(ctx)
}

// handleFollowUpScan surfaces tasks coming due within the window.
// Delivering the reminder to staff is the notification collaborator's
// job; this core only emits the structured signal.
func (w *Worker) handleFollowUpScan(ctx context.Context, _ *asynq.Task) error {
	due, err := w.tasks.DueWithin(ctx, followUpWindow)
	if err != nil {
		return err
	}
	for _, task := range due {
		w.log.Info("follow_up_due",
			"task_id", task.ID,
			"assigned_to", task.AssignedTo,
			"due_date", task.DueDate,
			"overdue", task.Overdue,
		)
	}
	return nil
}

// contentRenderer resolves the campaign's template once per run. A
// broken or missing template falls back to the campaign's own name and
// description rather than failing the whole dispatch.
func (w *Worker) contentRenderer(ctx context.Context, campaign camptransport.CampaignResponse) tmplservice.RenderFunc {
	if campaign.TemplateID == nil {
		return nil
	}
	templateID, err := uuid.Parse(*campaign.TemplateID)
	if err != nil {
		return nil
	}
	render, err := w.templates.Renderer(ctx, templateID)
	if err != nil {
		w.log.Error("campaign template unavailable", "campaign_id", campaign.ID, "template_id", *campaign.TemplateID, "error", err)
		return nil
	}
	return render
}

func buildMessage(campaign camptransport.CampaignResponse, campaignID uuid.UUID, rec repository.Recipient, render tmplservice.RenderFunc) (dispatch.Message, error) {
	subject := campaign.Name
	body := campaign.Description
	if render != nil {
		subject, body = render(map[string]string{
			"firstName": rec.FirstName,
			"name":      rec.FirstName,
		})
	}

	to := rec.Phone
	if campaign.Channel == string(campdomain.ChannelEmail) {
		if rec.Email == nil || *rec.Email == "" {
			return dispatch.Message{}, fmt.Errorf("recipient has no email address")
		}
		to = *rec.Email
	}

	return dispatch.Message{
		CampaignID:  campaignID,
		RecipientID: rec.ID,
		Channel:     campdomain.Channel(campaign.Channel),
		To:          to,
		Subject:     subject,
		Body:        body,
	}, nil
}

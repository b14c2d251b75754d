package poller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"account-provisioner-go/internal/authz"
	"account-provisioner-go/internal/ledger"
	"account-provisioner-go/internal/mailbox"
	"account-provisioner-go/internal/metrics"
	"account-provisioner-go/internal/model"
	"account-provisioner-go/internal/parser"
)

// AccountProvisioner creates the directory account for an authorized request.
type AccountProvisioner interface {
	Provision(ctx context.Context, req model.AccountRequest) (*model.ProvisioningResult, error)
}

// Dispatcher sends outcome notifications.
type Dispatcher interface {
	NotifyCreated(ctx context.Context, requester string, req model.AccountRequest, result model.ProvisioningResult) error
	NotifyAlreadyExists(ctx context.Context, requester string, result model.ProvisioningResult) error
	NotifyDenied(ctx context.Context, sender, reason string) error
	NotifyParseFailed(ctx context.Context, sender, detail string) error
	NotifyProvisioningFailed(ctx context.Context, requester string, req model.AccountRequest, detail string) error
	NotifyRunFailed(ctx context.Context, detail string)
}

// InfraError marks a failure of the mailbox or ledger. It aborts the whole
// run; the next scheduled trigger retries.
type InfraError struct {
	Op  string
	Err error
}

func (e *InfraError) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.Op, e.Err)
}

func (e *InfraError) Unwrap() error {
	return e.Err
}

// Poller drives candidate messages through the pipeline: parse, authorize,
// provision, notify, record, then mark the message processed. Messages are
// handled strictly sequentially in receipt order; the ledger keyed by
// message ID makes replayed runs idempotent.
type Poller struct {
	mailbox     mailbox.Mailbox
	parser      *parser.RequestParser
	gate        *authz.Gate
	provisioner AccountProvisioner
	dispatcher  Dispatcher
	ledger      ledger.Ledger
	metrics     *metrics.Metrics
	domain      string
}

// NewPoller creates a new mailbox poller
func NewPoller(mb mailbox.Mailbox, p *parser.RequestParser, gate *authz.Gate, prov AccountProvisioner, dispatcher Dispatcher, lg ledger.Ledger, m *metrics.Metrics, domain string) *Poller {
	return &Poller{
		mailbox:     mb,
		parser:      p,
		gate:        gate,
		provisioner: prov,
		dispatcher:  dispatcher,
		ledger:      lg,
		metrics:     m,
		domain:      domain,
	}
}

// Run executes one full poll cycle and returns a summary. A mailbox or
// ledger failure aborts the cycle immediately with an InfraError; no further
// messages are touched after the point of failure.
func (p *Poller) Run(ctx context.Context) (model.RunSummary, error) {
	var summary model.RunSummary

	startTime := time.Now()
	p.metrics.PollCount.Inc()

	messages, err := p.mailbox.ListCandidates(ctx)
	if err != nil {
		p.metrics.RunFailures.Inc()
		infraErr := &InfraError{Op: "mailbox", Err: err}
		p.alertRunFailure(infraErr)
		return summary, infraErr
	}

	summary.Fetched = len(messages)
	logrus.Infof("Fetched %d candidate messages", len(messages))
	p.metrics.MessagesFetched.Add(float64(len(messages)))

	for _, msg := range messages {
		select {
		case <-ctx.Done():
			p.metrics.RunFailures.Inc()
			infraErr := &InfraError{Op: "run", Err: ctx.Err()}
			p.alertRunFailure(infraErr)
			return summary, infraErr
		default:
		}

		if err := p.processMessage(ctx, msg, &summary); err != nil {
			var infraErr *InfraError
			if errors.As(err, &infraErr) {
				p.metrics.RunFailures.Inc()
				p.alertRunFailure(infraErr)
				return summary, err
			}
			logrus.Errorf("Failed to process message %s: %v", msg.ID, err)
			summary.Failed++
		}
	}

	duration := time.Since(startTime)
	p.metrics.ProcessingTime.Observe(duration.Seconds())
	logrus.Infof("Poll cycle completed in %v: %+v", duration, summary)

	return summary, nil
}

// processMessage runs one message through the pipeline, resuming from prior
// ledger state when an earlier run recorded partial progress.
func (p *Poller) processMessage(ctx context.Context, msg model.Message, summary *model.RunSummary) error {
	record, err := p.ledger.Begin(ctx, msg)
	if err != nil {
		return &InfraError{Op: "ledger", Err: err}
	}

	if record.State.IsTerminal() {
		logrus.Debugf("Message %s already terminal (%s), skipping", msg.ID, record.State)
		p.markProcessed(ctx, msg.ID)
		summary.Skipped++
		return nil
	}

	// Parsing is pure, so resumed messages are simply re-parsed.
	req, parseErr := p.parser.Parse(msg)
	if parseErr != nil {
		return p.finishParseFailed(ctx, msg, parseErr, summary)
	}

	if record.State == model.StateReceived {
		if err := p.transition(ctx, msg.ID, model.StateParsed, ""); err != nil {
			return err
		}
		if err := p.ledger.SetUsername(ctx, msg.ID, req.Username); err != nil {
			logrus.Warnf("Failed to record username for %s: %v", msg.ID, err)
		}
		record.State = model.StateParsed
	}

	if record.State == model.StateParsed {
		decision := p.gate.Check(msg.ID, msg.From)
		if !decision.Allowed() {
			return p.finishDenied(ctx, msg, decision, summary)
		}

		logrus.Infof("Authorized request from %s for username %s", msg.From, req.Username)
		if err := p.transition(ctx, msg.ID, model.StateAuthorized, decision.Reason); err != nil {
			return err
		}
		record.State = model.StateAuthorized
	}

	var result *model.ProvisioningResult

	if record.State == model.StateAuthorized {
		result, err = p.provisioner.Provision(ctx, *req)
		if err != nil {
			// Leave the message unread and the record at AUTHORIZED; the
			// next run retries from the duplicate-username check.
			return fmt.Errorf("provisioning attempt failed: %w", err)
		}

		if result.Status == model.ProvisioningFailed {
			return p.finishProvisioningFailed(ctx, msg, *req, *result, summary)
		}

		if err := p.transition(ctx, msg.ID, model.StateProvisioned, string(result.Status)); err != nil {
			return err
		}
		record.State = model.StateProvisioned

		if result.Status == model.ProvisioningCreated {
			p.metrics.AccountsProvisioned.Inc()
		}
	}

	if record.State == model.StateProvisioned {
		var notifyErr error
		if result == nil {
			// Resumed after a crash between provisioning and notification.
			// The temporary credential is gone; the admin resolves it.
			resumed := model.ProvisioningResult{
				Status:         model.ProvisioningAlreadyExists,
				PrimaryAddress: fmt.Sprintf("%s@%s", req.Username, p.domain),
			}
			notifyErr = p.dispatcher.NotifyAlreadyExists(ctx, msg.From, resumed)
		} else if result.Status == model.ProvisioningCreated {
			notifyErr = p.dispatcher.NotifyCreated(ctx, msg.From, *req, *result)
		} else {
			notifyErr = p.dispatcher.NotifyAlreadyExists(ctx, msg.From, *result)
		}

		p.recordNotifyOutcome(ctx, msg.ID, notifyErr)

		if err := p.transition(ctx, msg.ID, model.StateNotified, ""); err != nil {
			return err
		}
		record.State = model.StateNotified
	}

	if record.State == model.StateNotified {
		if err := p.transition(ctx, msg.ID, model.StateFinalized, ""); err != nil {
			return err
		}
	}

	p.markProcessed(ctx, msg.ID)

	if result != nil && result.Status == model.ProvisioningCreated {
		summary.Provisioned++
	} else {
		summary.Skipped++
	}

	logrus.Infof("Message %s finalized", msg.ID)
	return nil
}

// finishParseFailed records the terminal parse failure and alerts the admin.
// Only the administrator is notified; authorization was never evaluated.
func (p *Poller) finishParseFailed(ctx context.Context, msg model.Message, parseErr error, summary *model.RunSummary) error {
	p.metrics.ParseFailures.Inc()
	logrus.Warnf("Message %s from %s failed to parse: %v", msg.ID, msg.From, parseErr)

	if err := p.transition(ctx, msg.ID, model.StateParseFailed, parseErr.Error()); err != nil {
		return err
	}

	p.recordNotifyOutcome(ctx, msg.ID, p.dispatcher.NotifyParseFailed(ctx, msg.From, parseErr.Error()))
	p.markProcessed(ctx, msg.ID)
	summary.Failed++
	return nil
}

// finishDenied records the terminal denial and alerts the admin. No
// provider call is ever made for a denied message.
func (p *Poller) finishDenied(ctx context.Context, msg model.Message, decision authz.Decision, summary *model.RunSummary) error {
	p.metrics.RequestsDenied.Inc()
	logrus.Warnf("Unauthorized request from %s: %s", msg.From, decision.Reason)

	if err := p.transition(ctx, msg.ID, model.StateDenied, decision.Reason); err != nil {
		return err
	}

	p.recordNotifyOutcome(ctx, msg.ID, p.dispatcher.NotifyDenied(ctx, msg.From, decision.Reason))
	p.markProcessed(ctx, msg.ID)
	summary.Denied++
	return nil
}

// finishProvisioningFailed records the terminal provider failure, sends the
// requester a generic note and the admin the provider detail.
func (p *Poller) finishProvisioningFailed(ctx context.Context, msg model.Message, req model.AccountRequest, result model.ProvisioningResult, summary *model.RunSummary) error {
	p.metrics.ProvisioningFailures.Inc()
	logrus.Errorf("Provisioning failed for %s: %s", req.Username, result.ProviderDetail)

	if err := p.transition(ctx, msg.ID, model.StateProvisioningFailed, result.ProviderDetail); err != nil {
		return err
	}

	p.recordNotifyOutcome(ctx, msg.ID, p.dispatcher.NotifyProvisioningFailed(ctx, msg.From, req, result.ProviderDetail))
	p.markProcessed(ctx, msg.ID)
	summary.Failed++
	return nil
}

// transition wraps ledger transitions; a ledger failure is an infra error.
func (p *Poller) transition(ctx context.Context, messageID string, newState model.State, detail string) error {
	if err := p.ledger.Transition(ctx, messageID, newState, detail); err != nil {
		var invalidErr *ledger.InvalidTransitionError
		if errors.As(err, &invalidErr) {
			// Another run advanced this record; treat as a lost race, not an
			// outage.
			return fmt.Errorf("record advanced concurrently: %w", err)
		}
		return &InfraError{Op: "ledger", Err: err}
	}
	return nil
}

// alertRunFailure tells the administrator the run aborted. The alert gets
// its own deadline; a dead run context must not suppress it.
func (p *Poller) alertRunFailure(infraErr *InfraError) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	p.dispatcher.NotifyRunFailed(ctx, infraErr.Error())
}

// recordNotifyOutcome logs a notification failure and flags the record for
// manual follow-up. A failed notification never unwinds a provisioning.
func (p *Poller) recordNotifyOutcome(ctx context.Context, messageID string, notifyErr error) {
	if notifyErr == nil {
		return
	}

	p.metrics.NotifyFailures.Inc()
	logrus.Errorf("Failed to send notification for message %s: %v", messageID, notifyErr)
	if err := p.ledger.MarkNotifyPending(ctx, messageID); err != nil {
		logrus.Errorf("Failed to flag pending notification for %s: %v", messageID, err)
	}
}

// markProcessed flags the message in the mailbox. Failures are logged only;
// the terminal ledger state keeps a re-fetched message from being reprocessed.
func (p *Poller) markProcessed(ctx context.Context, messageID string) {
	if err := p.mailbox.MarkProcessed(ctx, messageID); err != nil {
		logrus.Errorf("Failed to mark message %s as processed: %v", messageID, err)
	}
}

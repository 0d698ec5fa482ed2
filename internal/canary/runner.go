package canary

import (
	"context"
	"fmt"
	"time"

	"finpulse/internal/common/auth"
	"finpulse/internal/common/errors"
	"finpulse/internal/common/logger"
	"finpulse/internal/common/metrics"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

// MetricsSink is the canary emission surface: exactly one success or
// failure counter plus one latency observation per run.
type MetricsSink interface {
	IncSuccess(probe string)
	IncFailure(probe string)
	ObserveLatency(probe string, ms float64)
}

// PromSink emits to the package-level Prometheus canary vectors.
type PromSink struct{}

func (PromSink) IncSuccess(probe string) { metrics.CanarySuccess.WithLabelValues(probe).Inc() }
func (PromSink) IncFailure(probe string) { metrics.CanaryFailure.WithLabelValues(probe).Inc() }
func (PromSink) ObserveLatency(probe string, ms float64) {
	metrics.CanaryResponseTime.WithLabelValues(probe).Observe(ms)
}

// Alerter pushes an ops notification for a failed run.
type Alerter interface {
	Alert(ctx context.Context, subject, message string) error
}

type snsPublisher interface {
	Publish(ctx context.Context, input *sns.PublishInput) (*sns.PublishOutput, error)
}

// SNSAlerter publishes canary failures to an ops topic.
type SNSAlerter struct {
	client   snsPublisher
	topicARN string
}

func NewSNSAlerter(client snsPublisher, topicARN string) *SNSAlerter {
	return &SNSAlerter{client: client, topicARN: topicARN}
}

func (a *SNSAlerter) Alert(ctx context.Context, subject, message string) error {
	_, err := a.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(a.topicARN),
		Subject:  aws.String(subject),
		Message:  aws.String(message),
	})
	if err != nil {
		return fmt.Errorf("alert publish failed: %w", err)
	}
	return nil
}

// RunnerOptions carries the collaborators a Runner needs. Sessions and
// Tokens let the runner bracket authenticated probes without going
// through the login endpoint, so a login regression cannot mask a
// regression in the probed API.
type RunnerOptions struct {
	Sessions  *auth.SessionStore
	Tokens    *auth.TokenCodec
	UserEmail string
	Sink      MetricsSink
	Alerter   Alerter
	Logger    logger.Logger
}

// Runner drives probes through the run state machine: session start,
// call, validations, session end, metrics, cleanup.
type Runner struct {
	sessions  *auth.SessionStore
	tokens    *auth.TokenCodec
	userEmail string
	sink      MetricsSink
	alerter   Alerter
	log       logger.Logger
}

func NewRunner(opts RunnerOptions) *Runner {
	sink := opts.Sink
	if sink == nil {
		sink = PromSink{}
	}
	log := opts.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Runner{
		sessions:  opts.Sessions,
		tokens:    opts.Tokens,
		userEmail: opts.UserEmail,
		sink:      sink,
		alerter:   opts.Alerter,
		log:       log,
	}
}

// Run executes one probe end to end. Cleanup always runs, the metrics
// emission is exactly one success-or-failure pair plus latency, and any
// failure raises an ops alert.
func (r *Runner) Run(ctx context.Context, probe Probe) (err error) {
	start := time.Now()
	log := r.log.WithFields(map[string]interface{}{"probe": probe.Name()})

	defer func() {
		r.sink.ObserveLatency(probe.Name(), float64(time.Since(start).Milliseconds()))
		if err != nil {
			r.sink.IncFailure(probe.Name())
			log.WithError(err).Error("canary run failed", nil)
			r.alert(ctx, probe.Name(), err)
		} else {
			r.sink.IncSuccess(probe.Name())
			log.Info("canary run passed", nil)
		}
	}()

	defer func() {
		if cleanErr := probe.CleanUp(ctx); cleanErr != nil {
			log.WithError(cleanErr).Error("canary cleanup failed", nil)
			if err == nil {
				err = errors.NewCanaryFailure("CleanUp", cleanErr.Error())
			}
		}
	}()

	token := ""
	if probe.IsAuthenticated() {
		session, createErr := r.sessions.Create(ctx, r.userEmail, r.userEmail)
		if createErr != nil {
			return errors.NewCanaryFailure("SessionStart", createErr.Error())
		}

		// End the session no matter how the run goes; a failed run must
		// not leave its minted session alive until the TTL.
		defer func() {
			endErr := r.sessions.End(ctx, r.userEmail, session.ID)
			if endErr == nil {
				return
			}
			// The session the runner just minted must still exist; a
			// missing record means session storage itself is broken.
			failure := errors.NewCanaryFailure("SessionEnd", endErr.Error())
			if errors.IsKind(endErr, errors.KindNotFound) {
				failure = errors.NewCanaryFailure("SessionDoesNotExist", endErr.Error())
			}
			if err == nil {
				err = failure
			} else {
				log.WithError(failure).Error("canary session end failed", nil)
			}
		}()

		token, err = r.tokens.Encode(r.userEmail, r.userEmail, session.ID)
		if err != nil {
			return errors.NewCanaryFailure("TokenIssue", err.Error())
		}
	}

	resp, callErr := probe.CallAPI(ctx, token)
	if callErr != nil {
		return errors.NewCanaryFailure("CallAPI", callErr.Error())
	}

	if vErr := probe.ValidateStatus(resp); vErr != nil {
		return errors.NewCanaryFailure("ValidateStatus", vErr.Error())
	}
	if vErr := probe.ValidateCookies(resp); vErr != nil {
		return errors.NewCanaryFailure("ValidateCookies", vErr.Error())
	}
	if vErr := probe.ValidateData(resp); vErr != nil {
		return errors.NewCanaryFailure("ValidateData", vErr.Error())
	}

	return nil
}

// RunAll runs every probe and returns how many failed.
func (r *Runner) RunAll(ctx context.Context, probes []Probe) int {
	failed := 0
	for _, probe := range probes {
		if err := r.Run(ctx, probe); err != nil {
			failed++
		}
	}
	return failed
}

func (r *Runner) alert(ctx context.Context, probeName string, runErr error) {
	if r.alerter == nil {
		return
	}
	subject := fmt.Sprintf("Canary failure: %s", probeName)
	if alertErr := r.alerter.Alert(ctx, subject, runErr.Error()); alertErr != nil {
		r.log.WithError(alertErr).Error("failed to publish canary alert", map[string]interface{}{
			"probe": probeName,
		})
	}
}

package notifier

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"account-provisioner-go/internal/model"
)

// Dispatcher composes and sends outcome notifications. The temporary
// credential goes only to the requester; the administrator's audit copy
// never contains it. Unauthorized senders are never told anything about the
// organization's structure.
type Dispatcher struct {
	sender     Sender
	adminEmail string
	domain     string
}

// NewDispatcher creates a notification dispatcher
func NewDispatcher(sender Sender, adminEmail, domain string) *Dispatcher {
	return &Dispatcher{
		sender:     sender,
		adminEmail: adminEmail,
		domain:     domain,
	}
}

// NotifyCreated tells the requester about the new account (including the
// temporary credential) and sends the administrator an audit copy without
// the credential. An error means at least one send failed.
func (d *Dispatcher) NotifyCreated(ctx context.Context, requester string, req model.AccountRequest, result model.ProvisioningResult) error {
	subject := fmt.Sprintf("Account Created: %s", result.PrimaryAddress)
	body := fmt.Sprintf(`Hello,

The account has been successfully created:

Name: %s %s
Email: %s
Temporary Password: %s
Department: %s
Title: %s

Important:
- The user must change their password on first login
- Please share these credentials securely with the new user
- The account may take a few minutes to become fully active

Best regards,
%s Account System
`, req.FirstName, req.LastName, result.PrimaryAddress, result.TempPassword, req.Department, req.Title, d.domain)

	var firstErr error
	if err := d.sender.Send(ctx, requester, subject, body); err != nil {
		firstErr = err
	}

	adminSubject := fmt.Sprintf("New Account Created: %s", result.PrimaryAddress)
	adminBody := fmt.Sprintf("Account created for %s %s (%s, %s), requested by %s.",
		req.FirstName, req.LastName, req.Department, req.Title, requester)
	if err := d.sender.Send(ctx, d.adminEmail, adminSubject, adminBody); err != nil && firstErr == nil {
		firstErr = err
	}

	return firstErr
}

// NotifyAlreadyExists tells the requester the account is already present and
// informs the administrator.
func (d *Dispatcher) NotifyAlreadyExists(ctx context.Context, requester string, result model.ProvisioningResult) error {
	subject := "Account Already Exists"
	body := fmt.Sprintf(`Hello,

The user %s already exists in the system.

If you need to reset their password or modify their account, please contact the administrator at %s.

Best regards,
%s Account System
`, result.PrimaryAddress, d.adminEmail, d.domain)

	var firstErr error
	if err := d.sender.Send(ctx, requester, subject, body); err != nil {
		firstErr = err
	}

	adminBody := fmt.Sprintf("Duplicate account request for %s by %s; no action taken.", result.PrimaryAddress, requester)
	if err := d.sender.Send(ctx, d.adminEmail, "Duplicate Account Request", adminBody); err != nil && firstErr == nil {
		firstErr = err
	}

	return firstErr
}

// NotifyDenied alerts the administrator about an unauthorized request. The
// sender gets no reply; echoing anything back would confirm valid internal
// addresses to an outside party.
func (d *Dispatcher) NotifyDenied(ctx context.Context, sender, reason string) error {
	subject := fmt.Sprintf("Unauthorized Account Request from %s", sender)
	body := fmt.Sprintf("Unauthorized account creation attempt from %s (%s). No reply was sent.", sender, reason)
	return d.sender.Send(ctx, d.adminEmail, subject, body)
}

// NotifyParseFailed alerts the administrator about a malformed request.
func (d *Dispatcher) NotifyParseFailed(ctx context.Context, sender, detail string) error {
	subject := "Malformed Account Request"
	body := fmt.Sprintf("Account request from %s could not be parsed: %s. The requester must resend a corrected email.", sender, detail)
	return d.sender.Send(ctx, d.adminEmail, subject, body)
}

// NotifyProvisioningFailed sends the requester a generic failure note and
// the administrator the provider detail. Provider internals never reach the
// requester.
func (d *Dispatcher) NotifyProvisioningFailed(ctx context.Context, requester string, req model.AccountRequest, detail string) error {
	subject := "Account Creation Failed"
	body := fmt.Sprintf(`Hello,

Your account creation request could not be processed.

Please contact the administrator at %s for assistance.

Best regards,
%s Account System
`, d.adminEmail, d.domain)

	var firstErr error
	if err := d.sender.Send(ctx, requester, subject, body); err != nil {
		firstErr = err
	}

	adminSubject := fmt.Sprintf("Provisioning Failed: %s", req.Username)
	adminBody := fmt.Sprintf("Account creation for %s@%s requested by %s failed: %s", req.Username, d.domain, requester, detail)
	if err := d.sender.Send(ctx, d.adminEmail, adminSubject, adminBody); err != nil && firstErr == nil {
		firstErr = err
	}

	return firstErr
}

// NotifyRunFailed alerts the administrator that a whole poll run aborted.
func (d *Dispatcher) NotifyRunFailed(ctx context.Context, detail string) {
	subject := "Account Provisioning Run Failed"
	if err := d.sender.Send(ctx, d.adminEmail, subject, detail); err != nil {
		logrus.Errorf("Failed to send run failure alert: %v", err)
	}
}

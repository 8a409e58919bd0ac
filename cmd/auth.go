package main

import (
	"context"
	"time"

	"github.com/urfave/cli/v3"
)

// AuthLogin runs the browser consent flow and stores the granted token.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	if r.config.Library.Source == "bucket" {
		return r.writePlain("Bucket libraries need no sign-in\n")
	}

	sess, err := r.authSession()
	if err != nil {
		return err
	}

	r.logger.Info("starting sign-in", "redirect", r.config.Drive.RedirectAddr)
	r.writePlain("Opening your browser to sign in with Google...\n")

	cred, err := sess.Connect(ctx)
	if err != nil {
		return err
	}

	r.writePlain("✓ Connected to Google Drive\n")
	return r.writePlain("Session expires: %s\n", cred.ExpiresAt.Local().Format(time.RFC1123))
}

// AuthStatus reports whether a usable stored credential exists, without prompting.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	sess, err := r.authSession()
	if err != nil {
		return err
	}

	r.writePlainHeader("Google Drive")
	if sess.ClientID(ctx) != "" {
		r.writePlain("Client ID: configured\n")
	} else {
		r.writePlain("Client ID: ✗ missing (run 'nova setup client <id>')\n")
	}
	if email := r.config.Drive.AllowedEmail; email != "" {
		r.writePlain("Allowed account: %s\n", email)
	}

	cred, ok := sess.ResumeIfStored(ctx)
	if !ok {
		return r.writePlain("Session: ✗ Not connected\n")
	}
	r.writePlain("Session: ✓ Connected\n")
	return r.writePlain("Expires in: %s\n", time.Until(cred.ExpiresAt).Round(time.Minute))
}

// AuthLogout forgets the stored credential.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	sess, err := r.authSession()
	if err != nil {
		return err
	}
	if err := sess.Disconnect(ctx); err != nil {
		return err
	}
	r.logger.Info("signed out")
	return r.writePlain("✓ Signed out\n")
}

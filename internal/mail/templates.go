package mail

import "fmt"

type verificationEmail struct {
	Subject string
	HTML    string
	Text    string
}

func buildVerificationEmail(appName, verifyURL string, userName *string) verificationEmail {
	greeting := "Hi"
	if userName != nil && *userName != "" {
		greeting = "Hi " + *userName
	}

	subject := fmt.Sprintf("Verify your %s email", appName)
	text := fmt.Sprintf(
		"%s,\n\nConfirm your email address to finish setting up your %s account:\n\n%s\n\nIf you did not create this account, ignore this message.\n",
		greeting, appName, verifyURL,
	)
	html := fmt.Sprintf(
		`<div style="font-family:sans-serif;max-width:480px;margin:0 auto">
<h2>%s,</h2>
<p>Confirm your email address to finish setting up your %s account.</p>
<p><a href="%s" style="display:inline-block;padding:10px 20px;background:#4f46e5;color:#fff;border-radius:6px;text-decoration:none">Verify email</a></p>
<p style="color:#666;font-size:12px">If you did not create this account, ignore this message.</p>
</div>`,
		greeting, appName, verifyURL,
	)

	return verificationEmail{Subject: subject, HTML: html, Text: text}
}

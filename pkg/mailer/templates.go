package mailer

import (
	"bytes"
	"fmt"
	"text/template"
	"time"
)

var (
	credentialsTemplate = template.Must(template.New("credentials").Parse(`Hello {{.Name}},

An account has been created for you on the attendance portal.

Email: {{.Email}}
Temporary password: {{.Password}}

Please sign in and change your password.
`))

	resetTemplate = template.Must(template.New("reset").Parse(`Hello {{.Name}},

Your password reset code is {{.Code}}. It expires in {{.TTL}}.

If you did not request a reset you can ignore this message.
`))
)

// TeacherCredentials builds the welcome mail carrying generated credentials.
func TeacherCredentials(to, name, password string) (Message, error) {
	body, err := execute(credentialsTemplate, map[string]string{"Name": name, "Email": to, "Password": password})
	if err != nil {
		return Message{}, err
	}
	return Message{To: []string{to}, Subject: "Your attendance portal account", Body: body}, nil
}

// PasswordResetCode builds the one time code mail.
func PasswordResetCode(to, name, code string, ttl time.Duration) (Message, error) {
	body, err := execute(resetTemplate, map[string]string{"Name": name, "Code": code, "TTL": ttl.String()})
	if err != nil {
		return Message{}, err
	}
	return Message{To: []string{to}, Subject: "Password reset code", Body: body}, nil
}

func execute(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s mail: %w", t.Name(), err)
	}
	return buf.String(), nil
}

package email

import (
	"bytes"
	htmltpl "html/template"
	texttpl "text/template"
)

type linkData struct {
	To   string
	Link string
}

var (
	verifyHTML = htmltpl.Must(htmltpl.New("verify_html").Parse(`<html><body>
<p>Hello,</p>
<p>An account was created for <b>{{.To}}</b>. Confirm the address to activate it:</p>
<p><a href="{{.Link}}">Verify my account</a></p>
<p>The link expires in 24 hours. If you did not request this, ignore this message.</p>
</body></html>`))

	verifyText = texttpl.Must(texttpl.New("verify_text").Parse(`Hello,

An account was created for {{.To}}. Confirm the address to activate it:

{{.Link}}

The link expires in 24 hours. If you did not request this, ignore this message.
`))

	resetHTML = htmltpl.Must(htmltpl.New("reset_html").Parse(`<html><body>
<p>Hello,</p>
<p>A password reset was requested for <b>{{.To}}</b>:</p>
<p><a href="{{.Link}}">Reset my password</a></p>
<p>The link expires in 1 hour. If you did not request this, your password is unchanged.</p>
</body></html>`))

	resetText = texttpl.Must(texttpl.New("reset_text").Parse(`Hello,

A password reset was requested for {{.To}}:

{{.Link}}

The link expires in 1 hour. If you did not request this, your password is unchanged.
`))
)

func renderVerification(to, link string) (string, string, error) {
	return render(verifyHTML, verifyText, linkData{To: to, Link: link})
}

func renderReset(to, link string) (string, string, error) {
	return render(resetHTML, resetText, linkData{To: to, Link: link})
}

func render(h *htmltpl.Template, t *texttpl.Template, data linkData) (string, string, error) {
	var hb, tb bytes.Buffer
	if err := h.Execute(&hb, data); err != nil {
		return "", "", err
	}
	if err := t.Execute(&tb, data); err != nil {
		return "", "", err
	}
	return hb.String(), tb.String(), nil
}

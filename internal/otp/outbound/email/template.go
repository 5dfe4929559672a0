package email

import (
	htmltemplate "html/template"
	texttemplate "text/template"
)

type content struct {
	Label   string
	Code    string
	Minutes int
	Year    int
}

var htmlBody = htmltemplate.Must(htmltemplate.New("otp.html").Parse(`<!DOCTYPE html>
<html>
  <head>
    <style>
      body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
      .container { max-width: 600px; margin: 0 auto; padding: 20px; }
      .header { background-color: #2563eb; color: white; padding: 20px; text-align: center; border-radius: 8px 8px 0 0; }
      .content { background-color: #f9fafb; padding: 30px; border-radius: 0 0 8px 8px; }
      .otp-box { background-color: #f0f4ff; border: 2px solid #2563eb; padding: 20px; border-radius: 8px; margin: 20px 0; text-align: center; }
      .otp { font-size: 36px; font-weight: bold; color: #2563eb; letter-spacing: 8px; }
      .warning { color: #dc2626; font-size: 14px; }
      .footer { text-align: center; color: #6b7280; font-size: 12px; margin-top: 20px; }
    </style>
  </head>
  <body>
    <div class="container">
      <div class="header">
        <h1>StockMaster</h1>
        <p>{{.Label}}</p>
      </div>
      <div class="content">
        <p>Hello,</p>
        <p>Your One-Time Password (OTP) for {{.Label}} is:</p>
        <div class="otp-box"><div class="otp">{{.Code}}</div></div>
        <p>This OTP will expire in <strong>{{.Minutes}} minutes</strong></p>
        <p class="warning">Never share this OTP with anyone. We will never ask you for your OTP.</p>
      </div>
      <div class="footer">
        <p>If you didn't request this OTP, please ignore this email.</p>
        <p>&copy; {{.Year}} StockMaster. All rights reserved.</p>
      </div>
    </div>
  </body>
</html>
`))

var textBody = texttemplate.Must(texttemplate.New("otp.txt").Parse(
	"Your {{.Label}} OTP is: {{.Code}}\n\nThis OTP will expire in {{.Minutes}} minutes.\n\nDo not share this OTP with anyone.",
))

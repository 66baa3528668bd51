package notify

import "fmt"

const resetSubject = "Password Reset OTP"

// resetBody renders the HTML body of the reset-code email.
func resetBody(code string) string {
	return fmt.Sprintf(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
  <h2 style="color: #333; text-align: center;">Password Reset Request</h2>
  <p style="color: #666; line-height: 1.6;">
    We received a request to reset your password. Please use the following OTP to proceed:
  </p>
  <div style="background-color: #f8f9fa; padding: 20px; border-radius: 8px; text-align: center; margin: 20px 0;">
    <h1 style="color: #007bff; margin: 0; font-size: 32px; letter-spacing: 5px;">%s</h1>
  </div>
  <p style="color: #666; line-height: 1.6;">
    This OTP will expire in 10 minutes. If you didn't request this password reset, please ignore this email.
  </p>
  <hr style="border: none; border-top: 1px solid #eee; margin: 20px 0;">
  <p style="color: #999; font-size: 12px; text-align: center;">
    This is an automated message, please do not reply to this email.
  </p>
</div>`, code)
}

package email

import "fmt"

const bodyStyle = `font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;`

// BuildPermitDecisionBody builds the HTML body for a permit decision
// notification.
func BuildPermitDecisionBody(requestID, permitID, status, note string) string {
	noteHTML := ""
	if note != "" {
		noteHTML = fmt.Sprintf(`<div style="background: #f8f9fa; padding: 15px; border-radius: 5px; margin: 20px 0;">
			<p style="margin: 0; font-size: 14px; color: #666;">Customs note</p>
			<p style="margin: 5px 0 0 0;">%s</p>
		</div>`, note)
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="%s">
	<div style="background: #1a3a5c; padding: 30px; border-radius: 10px 10px 0 0;">
		<h1 style="color: white; margin: 0; font-size: 24px;">Permit %s</h1>
	</div>
	<div style="background: #fff; padding: 30px; border: 1px solid #eee; border-top: none; border-radius: 0 0 10px 10px;">
		<p style="margin-top: 0;">Customs has decided on a handling permit.</p>
		<table style="width: 100%%; border-collapse: collapse; margin: 20px 0;">
			<tr>
				<td style="padding: 12px; border-bottom: 1px solid #eee; color: #666;">Handling request</td>
				<td style="padding: 12px; border-bottom: 1px solid #eee; font-family: monospace;">%s</td>
			</tr>
			<tr>
				<td style="padding: 12px; border-bottom: 1px solid #eee; color: #666;">Permit</td>
				<td style="padding: 12px; border-bottom: 1px solid #eee; font-family: monospace;">%s</td>
			</tr>
			<tr>
				<td style="padding: 12px; border-bottom: 1px solid #eee; color: #666;">Decision</td>
				<td style="padding: 12px; border-bottom: 1px solid #eee; font-weight: bold;">%s</td>
			</tr>
		</table>
		%s
		<p style="font-size: 12px; color: #999; margin-bottom: 0;">
			This message was sent automatically by the bonded warehouse system.
		</p>
	</div>
</body>
</html>`, bodyStyle, status, requestID, permitID, status, noteHTML)
}

// BuildHandlingConfirmedBody builds the HTML body for a handling
// confirmation notification.
func BuildHandlingConfirmedBody(requestID, entryID, newGTIP string) string {
	gtipHTML := ""
	if newGTIP != "" {
		gtipHTML = fmt.Sprintf(`<tr>
			<td style="padding: 12px; border-bottom: 1px solid #eee; color: #666;">New tariff code</td>
			<td style="padding: 12px; border-bottom: 1px solid #eee; font-family: monospace;">%s</td>
		</tr>`, newGTIP)
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="%s">
	<div style="background: #1a5c3a; padding: 30px; border-radius: 10px 10px 0 0;">
		<h1 style="color: white; margin: 0; font-size: 24px;">Handling result confirmed</h1>
	</div>
	<div style="background: #fff; padding: 30px; border: 1px solid #eee; border-top: none; border-radius: 0 0 10px 10px;">
		<p style="margin-top: 0;">The handling result was confirmed and the custody ledger updated.</p>
		<table style="width: 100%%; border-collapse: collapse; margin: 20px 0;">
			<tr>
				<td style="padding: 12px; border-bottom: 1px solid #eee; color: #666;">Handling request</td>
				<td style="padding: 12px; border-bottom: 1px solid #eee; font-family: monospace;">%s</td>
			</tr>
			<tr>
				<td style="padding: 12px; border-bottom: 1px solid #eee; color: #666;">Entry</td>
				<td style="padding: 12px; border-bottom: 1px solid #eee; font-family: monospace;">%s</td>
			</tr>
			%s
		</table>
		<p style="font-size: 12px; color: #999; margin-bottom: 0;">
			This message was sent automatically by the bonded warehouse system.
		</p>
	</div>
</body>
</html>`, bodyStyle, requestID, entryID, gtipHTML)
}

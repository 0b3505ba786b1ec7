package bot

import (
	"fmt"
	"strings"

	"LicenseOracle-TON/internal/agents"
	"LicenseOracle-TON/internal/license"
	"LicenseOracle-TON/internal/oracle"
	"LicenseOracle-TON/internal/verify"
)

const explorerBase = "https://testnet.tonviewer.com/transaction/"

// verdictIcon 与原始聊天界面保持一致的结果图标。
func verdictIcon(v oracle.Verdict) string {
	switch v {
	case oracle.VerdictValid:
		return "✅"
	case oracle.VerdictExpired:
		return "⏰"
	default:
		return "❌"
	}
}

// shortHex 截取长十六进制串的前 n 个字符用于展示。
func shortHex(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func startMessage(currentAgent string) string {
	return fmt.Sprintf(`🤖 Multi-Agent Bot + License Oracle!

Current Agent: %s

🤖 AI Commands:
• /ask [question] - Ask current agent
• /agent - Switch agents
• /agents - List all agents

🆔 License Oracle:
• /setwallet EQCx...YtR9 - Set your TON wallet address
• Send photo - Upload license for verification
• /license - Check status
• /licenses - View all
• /export - Export table format

⛓️ Blockchain:
• /wallet - Check wallet & blockchain status

📸 Upload your license photo to get started!
Example: /ask What is a verification oracle?`, currentAgent)
}

func helpMessage(currentAgent string) string {
	return fmt.Sprintf(`📖 Multi-Agent Bot + License Oracle Help:

Current Agent: %s

🤖 AI Commands:
• /start - Start the bot
• /ask [question] - Ask current agent
• /agent - Switch agents
• /agents - List all agents

🆔 License Oracle Commands:
• /setwallet EQCx...YtR9 - Set your TON wallet address
• Send photo - Upload license image for OCR processing
• /license - Check your license status
• /licenses - View all processed licenses
• /export - Export data as a table

⛓️ Blockchain Commands:
• /wallet - Show wallet status and balance

• /help - Show this help message

📸 To verify a license: Just send a photo of the license!`, currentAgent)
}

func agentListMessage(list []agents.Agent, current string) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🤖 Available Agents (%d):\n\n", len(list)))
	for i, agent := range list {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(fmt.Sprintf("• %s (ID: %d)\n  %s", agent.Name, agent.ID, agent.Description))
	}
	sb.WriteString(fmt.Sprintf("\n\n✅ Current: %s\n\nUse /agent to switch agents", current))
	return sb.String()
}

func agentReplyMessage(agentName, reply string) string {
	return fmt.Sprintf("🤖 %s Response:\n\n%s", agentName, reply)
}

func walletRegisteredMessage(requesterID, address string) string {
	return fmt.Sprintf(`✅ TON wallet address set successfully!

📍 Address: %s
👤 Telegram ID: @%s
💡 Now you can upload license photos for verification`, address, requesterID)
}

func verificationMessage(outcome *verify.Outcome) string {
	record := outcome.Record
	var sb strings.Builder
	sb.WriteString("🆔 License Processing Complete\n\n📋 Results:\n")
	sb.WriteString(fmt.Sprintf("• License Number: %s\n", record.DocumentNumber))
	sb.WriteString(fmt.Sprintf("• Oracle Status: %s %s\n", verdictIcon(record.Verdict), record.Verdict))
	sb.WriteString(fmt.Sprintf("• Confidence: %.2f%%\n", outcome.Confidence))
	sb.WriteString(fmt.Sprintf("• Hash: %s\n", shortHex(record.Fingerprint, 16)))
	sb.WriteString("\n⛓️ Blockchain:\n")
	if record.Recorded() {
		sb.WriteString("• Status: Recorded\n")
		sb.WriteString(fmt.Sprintf("• Tx Hash: %s\n", shortHex(record.LedgerReference, 16)))
		sb.WriteString(fmt.Sprintf("🔗 Explorer: %s%s", explorerBase, record.LedgerReference))
	} else {
		sb.WriteString("• Status: Demo Mode")
	}
	return sb.String()
}

func noNumberMessage(text string) string {
	if len(text) > 300 {
		text = text[:300] + "..."
	}
	return fmt.Sprintf("❌ Could not extract license number from image.\n\nOCR Text:\n%s", text)
}

func licenseStatusMessage(record license.Record) string {
	var sb strings.Builder
	sb.WriteString("🆔 Your License Status\n\n📋 Information:\n")
	sb.WriteString(fmt.Sprintf("• License Number: %s\n", record.DocumentNumber))
	sb.WriteString(fmt.Sprintf("• Status: %s %s\n", verdictIcon(record.Verdict), record.Verdict))
	sb.WriteString(fmt.Sprintf("• Hash: %s\n", shortHex(record.Fingerprint, 16)))
	sb.WriteString(fmt.Sprintf("• Processed: %s\n", record.CreatedAt))
	sb.WriteString(fmt.Sprintf("• Wallet: %s\n", record.WalletAddress))
	if record.Recorded() {
		sb.WriteString(fmt.Sprintf("• Tx Hash: %s\n", shortHex(record.LedgerReference, 16)))
		sb.WriteString(fmt.Sprintf("🔗 Explorer: %s%s", explorerBase, record.LedgerReference))
	}
	return sb.String()
}

func licensesListMessage(records []license.Record) string {
	if len(records) == 0 {
		return "📋 No licenses processed yet."
	}
	var sb strings.Builder
	sb.WriteString("📋 All Processed Licenses:\n\n")
	for _, record := range records {
		sb.WriteString(fmt.Sprintf("• %s: %s %s\n",
			record.RequesterID, record.DocumentNumber, verdictIcon(record.Verdict)))
	}
	return sb.String()
}

func exportMessage(table string, count int) string {
	if count == 0 {
		return "📋 No license data to export."
	}
	return fmt.Sprintf("📊 License Oracle - Export Data\n\n```\n%s```\n\n💾 Total Records: %d", table, count)
}

func walletInfoMessage(balance string, active bool, records int) string {
	statusIcon, statusText := "🔵", "Blockchain Recording Ready"
	if active {
		statusIcon, statusText = "🟢", "Blockchain Recording Active"
	}
	return fmt.Sprintf(`⛓️ TON Blockchain Integration

%s %s
💰 Balance: %s
🌐 Network: Testnet
📊 Recorded Licenses: %d

🔗 Explorers:
• TON Viewer: https://testnet.tonviewer.com/
• TON Scan: https://testnet.tonscan.org/`, statusIcon, statusText, balance, records)
}

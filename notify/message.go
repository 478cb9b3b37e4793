package notify

import (
	"fmt"
	"strings"

	"smartmoney/shared"
)

// defaultPricePrecision is the display precision used when a market has no
// exchange-derived precision.
const defaultPricePrecision = 4

// formatSetupMessage renders the provided setup as an html telegram message.
func formatSetupMessage(setup *shared.Setup, precision int) string {
	if precision <= 0 {
		precision = defaultPricePrecision
	}

	var b strings.Builder

	b.WriteString("<b>🧠 SMART MONEY SETUP CONFIRMED</b>\n\n")
	fmt.Fprintf(&b, "<b>Pair:</b> %s\n", setup.Market)
	fmt.Fprintf(&b, "<b>Direction:</b> %s\n\n", strings.ToUpper(setup.Direction.String()))

	fmt.Fprintf(&b, "<b>📍 Entry:</b> %.*f\n", precision, setup.Entry)
	fmt.Fprintf(&b, "<b>🛑 Stop Loss:</b> %.*f\n", precision, setup.StopLoss)
	fmt.Fprintf(&b, "<b>🎯 Take Profit:</b> %.*f\n\n", precision, setup.TakeProfit)

	fmt.Fprintf(&b, "<b>Evidence:</b> %s\n\n", setup.Evidence.Summary())

	b.WriteString("⚖️ R:R 1:2\n")
	b.WriteString("🚫 One trade per setup\n\n")

	fmt.Fprintf(&b, "<b>💼 Session:</b> %s\n", setup.Session)
	fmt.Fprintf(&b, "<b>🆔 Setup ID:</b> %s\n", setup.ID)

	return b.String()
}

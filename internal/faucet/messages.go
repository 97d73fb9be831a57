package faucet

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"testnet-faucet/internal/registry"
)

func wrongChannelMessage(net *registry.Network) string {
	return fmt.Sprintf("%s requests are handled in #%s — please ask there.", net.DisplayName, net.Channel)
}

func alreadyPendingMessage(net *registry.Network) string {
	return fmt.Sprintf("You already have a %s request in flight. Hang on until it finishes.", net.DisplayName)
}

func missingRoleMessage(net *registry.Network) string {
	return fmt.Sprintf(
		"Requesting %s funds needs one of these roles: %s. See the server rules for how to get verified.",
		net.DisplayName, strings.Join(net.AllowedRoles, ", "),
	)
}

func rateLimitedMessage(net *registry.Network, remaining time.Duration) string {
	return fmt.Sprintf(
		"You can request %s funds once every %s. Try again in %s.",
		net.DisplayName, HumanDuration(net.Window), HumanDuration(remaining),
	)
}

func selfSufficientMessage(net *registry.Network, addr common.Address, balance *big.Int) string {
	return fmt.Sprintf(
		"%s already holds %s %s, which meets the %s %s target — nothing sent.",
		addr.Hex(), registry.WeiToEther(balance).StringFixed(4), net.Symbol,
		registry.WeiToEther(net.TargetAmount).StringFixed(4), net.Symbol,
	)
}

func faucetEmptyMessage(net *registry.Network) string {
	return fmt.Sprintf(
		"The %s faucet is running on fumes and cannot cover this request right now. The operators have been notified.",
		net.DisplayName,
	)
}

func dispensedMessage(net *registry.Network, amount *big.Int, tx common.Hash, capacity int64, quickRepeat bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Sent %s %s — %s", registry.WeiToEther(amount).StringFixed(4), net.Symbol, net.ExplorerLink(tx))
	if capacity >= 0 {
		fmt.Fprintf(&b, "\nThe faucet can serve roughly %d more requests before refilling.", capacity)
	}
	if quickRepeat {
		b.WriteString("\nBack right on schedule, I see.")
	}
	return b.String()
}

// HumanDuration renders a duration the way users read cooldowns: the two
// most significant units, no seconds past the first minute.
func HumanDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}

	days := d / (24 * time.Hour)
	d -= days * 24 * time.Hour
	hours := d / time.Hour
	d -= hours * time.Hour
	minutes := d / time.Minute
	d -= minutes * time.Minute
	seconds := d / time.Second

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh", days, hours)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	case minutes > 0:
		return fmt.Sprintf("%dm", minutes)
	default:
		return fmt.Sprintf("%ds", seconds)
	}
}

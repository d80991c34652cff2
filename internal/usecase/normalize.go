package usecase

import (
	"strings"
	"unicode"

	domainErrors "github.com/wekeepgrowing/momo-checkout/internal/domain/errors"
	"github.com/wekeepgrowing/momo-checkout/internal/domain/model"
)

const countryCode = "255"

// NormalizePhone maps raw user input to the local 0XXXXXXXXX form.
// Accepted shapes after stripping non-digits: 0XXXXXXXXX, 255XXXXXXXXX, XXXXXXXXX.
func NormalizePhone(raw string) (string, error) {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, raw)

	switch {
	case len(digits) == 10 && digits[0] == '0':
		return digits, nil
	case len(digits) == 12 && strings.HasPrefix(digits, countryCode):
		return "0" + digits[len(countryCode):], nil
	case len(digits) == 9:
		return "0" + digits, nil
	default:
		return "", domainErrors.NewPhoneValidationError(raw, digits)
	}
}

// InternationalPhone converts a normalized local number to 255XXXXXXXXX.
func InternationalPhone(local string) string {
	return countryCode + strings.TrimPrefix(local, "0")
}

var providerAliases = map[string]model.Provider{
	"mpesa":       model.ProviderMPesa,
	"vodacom":     model.ProviderMPesa,
	"tigopesa":    model.ProviderTigoPesa,
	"tigo":        model.ProviderTigoPesa,
	"mixxbyyas":   model.ProviderTigoPesa,
	"airtelmoney": model.ProviderAirtelMoney,
	"airtel":      model.ProviderAirtelMoney,
	"halopesa":    model.ProviderHaloPesa,
	"halotel":     model.ProviderHaloPesa,
}

// ParseProvider accepts display names such as "M-Pesa" or "Airtel Money".
func ParseProvider(raw string) (model.Provider, error) {
	key := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return -1
	}, raw)

	if p, ok := providerAliases[key]; ok {
		return p, nil
	}
	return "", &domainErrors.ValidationError{
		Field:   "provider",
		Message: domainErrors.ErrUnsupportedProvider.Error(),
		Raw:     raw,
	}
}

var providerChannels = map[model.Provider]string{
	model.ProviderMPesa:       "MPESA",
	model.ProviderTigoPesa:    "TIGOPESA",
	model.ProviderAirtelMoney: "AIRTELMONEY",
}

// ChannelFor returns the gateway channel code. ok is false for providers the
// gateway routes by default, in which case the channel field is omitted.
func ChannelFor(p model.Provider) (channel string, ok bool) {
	channel, ok = providerChannels[p]
	return channel, ok
}

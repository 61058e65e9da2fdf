package openid

import (
	"net/url"
	"strings"
)

// axNamespace is the OpenID Attribute Exchange 1.0 namespace.
const axNamespace = "http://openid.net/srv/ax/1.0"

// Attribute is one requested attribute exchange field. Alias is the name
// this provider uses for it; TypeURI is the attribute's type identifier.
type Attribute struct {
	Alias   string
	TypeURI string
}

// appendAXParams adds a fetch_request for attrs to an authentication
// request URL.
func appendAXParams(u *url.URL, attrs []Attribute) {
	if len(attrs) == 0 {
		return
	}
	q := u.Query()
	q.Set("openid.ns.ax", axNamespace)
	q.Set("openid.ax.mode", "fetch_request")
	aliases := make([]string, 0, len(attrs))
	for _, a := range attrs {
		q.Set("openid.ax.type."+a.Alias, a.TypeURI)
		aliases = append(aliases, a.Alias)
	}
	q.Set("openid.ax.required", strings.Join(aliases, ","))
	u.RawQuery = q.Encode()
}

// parseAXResponse extracts the requested attributes from an assertion's
// parameters. The endpoint chooses its own alias for the AX namespace and
// may also rename the attributes, so both indirections are resolved by
// scanning the openid.ns.* and openid.<ns>.type.* declarations rather
// than assuming our request aliases survived the round trip.
func parseAXResponse(params url.Values, attrs []Attribute) map[string]string {
	out := make(map[string]string)
	nsAlias := ""
	for key, vals := range params {
		if strings.HasPrefix(key, "openid.ns.") && len(vals) > 0 && vals[0] == axNamespace {
			nsAlias = strings.TrimPrefix(key, "openid.ns.")
			break
		}
	}
	if nsAlias == "" {
		return out
	}

	typePrefix := "openid." + nsAlias + ".type."
	byTypeURI := make(map[string]string)
	for key, vals := range params {
		if strings.HasPrefix(key, typePrefix) && len(vals) > 0 {
			byTypeURI[vals[0]] = strings.TrimPrefix(key, typePrefix)
		}
	}

	valuePrefix := "openid." + nsAlias + ".value."
	for _, a := range attrs {
		alias, ok := byTypeURI[a.TypeURI]
		if !ok {
			alias = a.Alias
		}
		v := params.Get(valuePrefix + alias)
		if v == "" {
			// Multi-valued responses number their entries.
			v = params.Get(valuePrefix + alias + ".1")
		}
		if v != "" {
			out[a.Alias] = v
		}
	}
	return out
}

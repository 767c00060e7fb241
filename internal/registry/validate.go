package registry

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/swarm-blackjack/service-gateway/internal/gwerrors"
)

var nameCharset = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)

// reservedNames are public-path first segments the dispatcher owns itself
// and that no service may shadow (spec.md §4.H). Beyond "/" and
// "/register", the ingress layer also installs fixed exact-match handlers
// at "/health" and "/events" (SPEC_FULL.md §4.H) — a service registered
// under either name would have its routes silently unreachable behind
// those handlers, so both are reserved too.
var reservedNames = map[string]bool{
	"register": true,
	"health":   true,
	"events":   true,
	"":         true,
}

// sanitizeName lowercases and collapses whitespace runs to a single dash,
// matching spec.md §3's service-name rule.
func sanitizeName(raw string) string {
	lower := strings.ToLower(strings.TrimSpace(raw))
	fields := strings.Fields(lower)
	return strings.Join(fields, "-")
}

// validateAndFill sanitizes a RegisterRequest, fills in endpoint defaults,
// and returns the fully-validated Service ready for storage. Every
// validation failure returns a distinct, named error kind — nothing is
// silently accepted. The only normalisation is the name sanitisation
// spec.md §3 calls for and the trimming of trailing slashes from
// internal_url.
func validateAndFill(req RegisterRequest) (Service, error) {
	name := sanitizeName(req.Name)
	if name == "" {
		return Service{}, gwerrors.New(gwerrors.InvalidRegistration, "name: must be non-empty")
	}
	if reservedNames[name] {
		return Service{}, gwerrors.New(gwerrors.ReservedName, fmt.Sprintf("name %q is reserved", name))
	}
	if !nameCharset.MatchString(name) {
		return Service{}, gwerrors.New(gwerrors.InvalidRegistration, "name: must match [a-z0-9][a-z0-9-]*")
	}

	parsed, err := url.Parse(req.InternalURL)
	if err != nil {
		return Service{}, gwerrors.New(gwerrors.InvalidRegistration, "internal_url: "+err.Error())
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return Service{}, gwerrors.New(gwerrors.InvalidRegistration, "internal_url: must be absolute http or https")
	}
	if parsed.Host == "" {
		return Service{}, gwerrors.New(gwerrors.InvalidRegistration, "internal_url: missing host")
	}

	if len(req.Endpoints) == 0 {
		return Service{}, gwerrors.New(gwerrors.InvalidRegistration, "endpoints: must be non-empty")
	}

	seen := make(map[string]bool, len(req.Endpoints))
	endpoints := make([]Endpoint, 0, len(req.Endpoints))
	for i, er := range req.Endpoints {
		ep, err := validateEndpoint(i, er)
		if err != nil {
			return Service{}, err
		}
		key := string(ep.Method) + " " + ep.Path
		if seen[key] {
			return Service{}, gwerrors.New(gwerrors.InvalidRegistration,
				fmt.Sprintf("endpoints[%d]: duplicate (method, path) %s", i, key))
		}
		seen[key] = true
		endpoints = append(endpoints, ep)
	}

	return Service{
		Name:        name,
		InternalURL: strings.TrimRight(req.InternalURL, "/"),
		Endpoints:   endpoints,
		Status:      StatusActive,
	}, nil
}

func validateEndpoint(i int, er EndpointRequest) (Endpoint, error) {
	if !strings.HasPrefix(er.Path, "/") {
		return Endpoint{}, gwerrors.New(gwerrors.InvalidRegistration,
			fmt.Sprintf("endpoints[%d].path: must begin with '/'", i))
	}
	if strings.Contains(er.Path, "//") {
		return Endpoint{}, gwerrors.New(gwerrors.InvalidRegistration,
			fmt.Sprintf("endpoints[%d].path: must not contain duplicate slashes", i))
	}

	method := Method(strings.ToUpper(strings.TrimSpace(er.Method)))
	if method == "" {
		method = defaultMethod
	}
	if !allowedMethods[method] {
		return Endpoint{}, gwerrors.New(gwerrors.InvalidRegistration,
			fmt.Sprintf("endpoints[%d].method: %q is not one of GET, POST, PUT, DELETE, PATCH", i, er.Method))
	}

	timeout := defaultTimeoutSeconds
	if er.Timeout != nil {
		timeout = *er.Timeout
	}
	if timeout < minTimeoutSeconds || timeout > maxTimeoutSeconds {
		return Endpoint{}, gwerrors.New(gwerrors.InvalidRegistration,
			fmt.Sprintf("endpoints[%d].timeout: must be in [1, 600]", i))
	}

	return Endpoint{
		Path:           er.Path,
		Method:         method,
		TimeoutSeconds: timeout,
		Description:    er.Description,
		InputSchema:    er.InputSchema,
	}, nil
}

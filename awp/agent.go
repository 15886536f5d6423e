// Copyright 2025 The AWP Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package awp

// AgentCapabilities declares the optional protocol features an agent supports.
type AgentCapabilities struct {
	// Streaming indicates support for streaming responses.
	Streaming bool `json:"streaming,omitempty"`

	// PushNotifications indicates support for webhook task updates.
	PushNotifications bool `json:"pushNotifications,omitempty"`

	// StateTransitionHistory indicates the agent records prior status
	// transitions on its tasks.
	StateTransitionHistory bool `json:"stateTransitionHistory,omitempty"`

	// ExtendedCard indicates the agent serves a richer agent card to
	// authenticated callers.
	ExtendedCard bool `json:"supportsAuthenticatedExtendedCard,omitempty"`

	// Extensions lists protocol extensions supported by the agent.
	Extensions []AgentExtension `json:"extensions,omitempty"`
}

// AgentCard is the agent's self-describing discovery document: identity,
// skills, capabilities and the transports it can be reached over.
type AgentCard struct {
	// Name is a human-readable name for the agent.
	Name string `json:"name"`

	// Description explains the agent's purpose to users and other agents.
	Description string `json:"description"`

	// Version is the agent's own version number, in a provider-defined format.
	Version string `json:"version"`

	// SupportedInterfaces lists every transport, protocol version and URL
	// combination the agent serves. Every listed interface must expose the
	// same logical operations.
	SupportedInterfaces []*AgentInterface `json:"supportedInterfaces"`

	// Capabilities declares the agent's optional protocol features.
	Capabilities AgentCapabilities `json:"capabilities"`

	// Skills is the set of distinct capabilities the agent can perform.
	Skills []AgentSkill `json:"skills"`

	// DefaultInputModes is the default set of accepted input MIME types,
	// overridable per skill.
	DefaultInputModes []string `json:"defaultInputModes"`

	// DefaultOutputModes is the default set of produced output MIME types,
	// overridable per skill.
	DefaultOutputModes []string `json:"defaultOutputModes"`

	// Provider describes the agent's service provider.
	Provider *AgentProvider `json:"provider,omitempty"`

	// DocumentationURL optionally links to the agent's documentation.
	DocumentationURL string `json:"documentationUrl,omitempty"`

	// IconURL optionally links to an icon for the agent.
	IconURL string `json:"iconUrl,omitempty"`

	// SecurityRequirements lists alternative security requirement objects that
	// apply to all interactions. Each object's schemes must be satisfied together.
	SecurityRequirements SecurityRequirements `json:"securityRequirements,omitempty"`

	// SecuritySchemes declares the available security schemes by name,
	// following the OpenAPI 3.0 Security Scheme Object.
	SecuritySchemes map[string]SecurityScheme `json:"securitySchemes,omitempty"`
}

// AgentExtension declares a protocol extension supported by the agent.
type AgentExtension struct {
	// URI uniquely identifies the extension.
	URI string `json:"uri,omitempty"`

	// Description optionally explains how the agent uses the extension.
	Description string `json:"description,omitempty"`

	// Required indicates clients must understand the extension to interact
	// with the agent.
	Required bool `json:"required,omitempty"`

	// Params carries extension-specific configuration.
	Params map[string]any `json:"params,omitempty"`
}

// AgentInterface is one target URL and protocol binding combination at which
// the agent's operations are available.
type AgentInterface struct {
	// URL is where this interface is served.
	URL string `json:"url"`

	// ProtocolBinding is the transport served at the URL. Open-form; custom
	// bindings are allowed.
	ProtocolBinding TransportProtocol `json:"protocolBinding"`

	// ProtocolVersion is the protocol version this interface exposes.
	ProtocolVersion ProtocolVersion `json:"protocolVersion"`

	// Tenant optionally identifies the agent owner.
	Tenant string `json:"tenant,omitempty"`
}

// NewAgentInterface creates an AgentInterface for the current protocol version.
func NewAgentInterface(url string, binding TransportProtocol) *AgentInterface {
	return &AgentInterface{URL: url, ProtocolBinding: binding, ProtocolVersion: Version}
}

// AgentProvider describes the organization operating the agent.
type AgentProvider struct {
	// Org is the provider's organization name.
	Org string `json:"organization"`

	// URL links to the provider's website or documentation.
	URL string `json:"url"`
}

// AgentSkill is a distinct capability the agent can perform, advertised for
// discovery and used to route inbound messages to handlers.
type AgentSkill struct {
	// ID uniquely identifies the skill within the agent.
	ID string `json:"id"`

	// Name is a human-readable name for the skill.
	Name string `json:"name"`

	// Description explains the skill's purpose and behavior.
	Description string `json:"description"`

	// Tags are keywords describing the skill.
	Tags []string `json:"tags"`

	// Examples are sample prompts or scenarios the skill handles.
	Examples []string `json:"examples,omitempty"`

	// InputModes overrides the agent's default accepted input MIME types.
	InputModes []string `json:"inputModes,omitempty"`

	// OutputModes overrides the agent's default produced output MIME types.
	OutputModes []string `json:"outputModes,omitempty"`

	// SecurityRequirements lists the scheme combinations needed to use this skill.
	SecurityRequirements SecurityRequirements `json:"securityRequirements,omitempty"`
}

// SecurityRequirements is a logical OR of requirement objects; each object
// maps scheme names to required scopes and is satisfied as a whole.
type SecurityRequirements []map[string][]string

// SecurityScheme describes one way callers can authenticate, following the
// OpenAPI 3.0 Security Scheme Object. Fields apply per Type.
type SecurityScheme struct {
	// Type is the scheme category: "apiKey", "http", "openIdConnect" or "mutualTLS".
	Type string `json:"type"`

	// Description optionally explains the scheme.
	Description string `json:"description,omitempty"`

	// Name is the header or query parameter name for apiKey schemes.
	Name string `json:"name,omitempty"`

	// Location is where the apiKey is carried: "header", "query" or "cookie".
	Location string `json:"in,omitempty"`

	// Scheme is the HTTP authentication scheme for http schemes, e.g. "bearer".
	Scheme string `json:"scheme,omitempty"`

	// BearerFormat hints at the bearer token format, e.g. "JWT".
	BearerFormat string `json:"bearerFormat,omitempty"`

	// OpenIDConnectURL locates the OpenID Connect discovery document.
	OpenIDConnectURL string `json:"openIdConnectUrl,omitempty"`
}

// TransportProtocol names a wire binding of the logical operation set.
// Custom bindings are allowed; this type must not be treated as an enum.
type TransportProtocol string

const (
	// TransportProtocolJSONRPC is the JSON-RPC 2.0 over HTTP binding.
	TransportProtocolJSONRPC TransportProtocol = "JSONRPC"
	// TransportProtocolGRPC is the gRPC binding.
	TransportProtocolGRPC TransportProtocol = "GRPC"
	// TransportProtocolHTTPJSON is the resource-oriented HTTP+JSON binding.
	TransportProtocolHTTPJSON TransportProtocol = "HTTP+JSON"
)

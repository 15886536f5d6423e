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

package awpsrv

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/awprotocol/awp-go/awp"
	"github.com/awprotocol/awp-go/log"
)

// WellKnownAgentCardPath is the standard HTTP path for retrieving the agent card.
const WellKnownAgentCardPath = "/.well-known/agent-card.json"

// AgentCardProducer creates public AgentCard instances used for agent discovery
// and capability negotiation.
type AgentCardProducer interface {
	// Card returns a self-describing manifest for an agent. It provides essential
	// metadata including the agent's identity, capabilities, skills, supported
	// communication methods, and security requirements.
	Card(ctx context.Context) (*awp.AgentCard, error)
}

// AgentCardJSONProducer creates an agent card used for agent discovery and
// capability negotiation as raw json.
type AgentCardJSONProducer interface {
	// CardJSON returns an [awp.AgentCard] as raw json.
	CardJSON(ctx context.Context) ([]byte, error)
}

// AgentCardProducerFn is a function type which implements [AgentCardProducer].
type AgentCardProducerFn func(ctx context.Context) (*awp.AgentCard, error)

// Card implements AgentCardProducer.
func (fn AgentCardProducerFn) Card(ctx context.Context) (*awp.AgentCard, error) {
	return fn(ctx)
}

// ExtendedAgentCardProducer creates AgentCard instances used for communicating
// extended capabilities to authenticated clients.
type ExtendedAgentCardProducer interface {
	// ExtendedCard returns a self-describing manifest for an agent. It contains
	// extended data for authenticated clients.
	ExtendedCard(ctx context.Context, req *awp.GetExtendedAgentCardRequest) (*awp.AgentCard, error)
}

// ExtendedAgentCardProducerFn is a function type which implements [ExtendedAgentCardProducer].
type ExtendedAgentCardProducerFn func(ctx context.Context, req *awp.GetExtendedAgentCardRequest) (*awp.AgentCard, error)

// ExtendedCard implements [ExtendedAgentCardProducer].
func (fn ExtendedAgentCardProducerFn) ExtendedCard(ctx context.Context, req *awp.GetExtendedAgentCardRequest) (*awp.AgentCard, error) {
	return fn(ctx, req)
}

// WithExtendedAgentCard sets a static extended authenticated agent card.
func WithExtendedAgentCard(card *awp.AgentCard) RequestHandlerOption {
	return func(ih *InterceptedHandler, h *defaultRequestHandler) {
		h.extendedCardProducer = ExtendedAgentCardProducerFn(func(ctx context.Context, req *awp.GetExtendedAgentCardRequest) (*awp.AgentCard, error) {
			return card, nil
		})
	}
}

// ValidateAgentCard reports whether the card carries the fields clients rely
// on for discovery. Serving handlers call it once at construction time.
func ValidateAgentCard(card *awp.AgentCard) error {
	if card == nil {
		return fmt.Errorf("agent card cannot be nil")
	}
	if card.Name == "" {
		return fmt.Errorf("agent card name cannot be empty")
	}
	if card.Version == "" {
		return fmt.Errorf("agent card version cannot be empty")
	}
	if len(card.SupportedInterfaces) == 0 {
		return fmt.Errorf("agent card must list at least one supported interface")
	}
	for i, iface := range card.SupportedInterfaces {
		if iface == nil || iface.URL == "" {
			return fmt.Errorf("agent card interface %d is missing a URL", i)
		}
		if iface.ProtocolBinding == "" {
			return fmt.Errorf("agent card interface %d is missing a protocol binding", i)
		}
	}
	return nil
}

// NewStaticAgentCardHandler creates an [http.Handler] implementation for serving
// a PUBLIC [awp.AgentCard] which is not expected to change while the program is
// running. The information contained in this card can be queried from any
// origin. The method panics if the card is invalid or fails to marshal.
func NewStaticAgentCardHandler(card *awp.AgentCard) http.Handler {
	if err := ValidateAgentCard(card); err != nil {
		panic(err.Error())
	}
	bytes, err := json.Marshal(card)
	if err != nil {
		panic(err.Error())
	}
	return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		ctx := attachCardLogger(req)
		if req.Method == http.MethodOptions {
			writePublicCardHTTPOptions(rw, req)
			rw.WriteHeader(http.StatusOK)
			return
		}
		if req.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		writeAgentCardBytes(ctx, rw, req, bytes)
	})
}

// NewAgentCardHandler creates an [http.Handler] implementation for serving a
// PUBLIC [awp.AgentCard]. The information contained in this card can be queried
// from any origin.
func NewAgentCardHandler(producer AgentCardProducer) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		ctx := attachCardLogger(req)
		if req.Method == http.MethodOptions {
			writePublicCardHTTPOptions(rw, req)
			rw.WriteHeader(http.StatusOK)
			return
		}
		if req.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		if producer, ok := producer.(AgentCardJSONProducer); ok {
			cardBytes, err := producer.CardJSON(ctx)
			if err != nil {
				log.Error(ctx, "agent card producer failed", err)
				rw.WriteHeader(http.StatusInternalServerError)
				return
			}
			writeAgentCardBytes(ctx, rw, req, cardBytes)
			return
		}

		card, err := producer.Card(ctx)
		if err != nil {
			log.Error(ctx, "agent card producer failed", err)
			rw.WriteHeader(http.StatusInternalServerError)
			return
		}
		cardBytes, err := json.Marshal(card)
		if err != nil {
			log.Error(ctx, "agent card marshaling failed", err)
			rw.WriteHeader(http.StatusInternalServerError)
			return
		}
		writeAgentCardBytes(ctx, rw, req, cardBytes)
	})
}

func attachCardLogger(req *http.Request) context.Context {
	logger := log.LoggerFrom(req.Context())
	withAttrs := logger.With(
		"method", req.Method,
		"host", req.Host,
		"remote_addr", req.RemoteAddr,
	)
	return log.AttachLogger(req.Context(), withAttrs)
}

func writePublicCardHTTPOptions(rw http.ResponseWriter, req *http.Request) {
	writeCORSHeaders(rw, req)
	rw.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	rw.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	rw.Header().Set("Access-Control-Max-Age", "86400")
}

func writeAgentCardBytes(ctx context.Context, rw http.ResponseWriter, req *http.Request, bytes []byte) {
	writeCORSHeaders(rw, req)
	rw.Header().Set("Content-Type", "application/json")
	if _, err := rw.Write(bytes); err != nil {
		log.Error(ctx, "failed to write agent card response", err)
	}
}

func writeCORSHeaders(rw http.ResponseWriter, req *http.Request) {
	origin := req.Header.Get("Origin")
	if origin != "" {
		rw.Header().Set("Access-Control-Allow-Origin", origin)
		rw.Header().Set("Access-Control-Allow-Credentials", "true")
		rw.Header().Set("Vary", "Origin")
	} else {
		rw.Header().Set("Access-Control-Allow-Origin", "*")
	}
}

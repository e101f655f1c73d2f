// SPDX-License-Identifier: AGPL-3.0
// Copyright 2025 Kadir Pekel
//
// Licensed under the GNU Affero General Public License v3.0 (AGPL-3.0) (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.gnu.org/licenses/agpl-3.0.en.html
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package embedder produces L2-normalized vector embeddings for intents
// and tool descriptions, and caches them by canonical text key.
//
// Ported from legacy pkg/embedders for use in this gateway.
package embedder

import (
	"context"

	"github.com/meshgate/core/pkg/types"
)

// Provider produces a raw vector embedding for a piece of text.
// Different backends (a deterministic stand-in, Ollama, ...) implement
// this interface.
//
// Embed is not required to return a normalized vector; Service
// normalizes whatever the provider returns.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
	Model() string
}

// intentCacheKey builds the canonical cache key for an intent embedding
// request: intent|category|action|canonical(parameters).
func intentCacheKey(category types.IntentCategory, action, target string, parameters map[string]any) string {
	return "intent|" + string(category) + "|" + action + "|" + target + "|" + types.Canonicalize(parameters)
}

// toolCacheKey builds the canonical cache key for a tool description
// embedding request: tool|name.
func toolCacheKey(name string) string {
	return "tool|" + name
}

// intentText composes the deterministic text an intent is embedded
// from.
func intentText(category types.IntentCategory, action, target string, parameters map[string]any) string {
	return "Action: " + action +
		"\nCategory: " + string(category) +
		"\nTarget: " + target +
		"\nParameters: " + types.Canonicalize(parameters)
}

// toolText composes the deterministic text a tool description is
// embedded from.
func toolText(name, description string) string {
	return name + ": " + description
}

// Copyright 2025 Poiesic Systems
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


package classify

import (
	"sort"
	"strings"
)

// Config holds the classifier vocabulary. It is built once at startup and
// shared by reference; after New returns, the classifier never mutates it.
type Config struct {
	// Vocabulary maps a category label to the keywords that trigger it.
	// Keywords are matched by case-insensitive containment and may be in
	// any language.
	Vocabulary map[string][]string

	// PrimaryTriggers are phrases that signal the user wants top-tier
	// attractions only (no dining, markets, or neighborhood spots).
	PrimaryTriggers []string
}

// DefaultConfig returns the built-in multilingual travel vocabulary.
func DefaultConfig() *Config {
	return &Config{
		Vocabulary: map[string][]string{
			"temple": {
				"temple", "wat", "shrine", "pagoda", "stupa",
				"templo", "tempel", "寺", "神社", "วัด",
			},
			"museum": {
				"museum", "gallery", "exhibition",
				"museo", "musée", "博物館", "พิพิธภัณฑ์",
			},
			"palace": {
				"palace", "castle", "royal residence",
				"palacio", "palais", "schloss", "宮殿", "พระราชวัง",
			},
			"park": {
				"park", "garden", "botanical",
				"parque", "jardin", "公園", "สวน",
			},
			"market": {
				"market", "bazaar", "night market", "floating market",
				"mercado", "marché", "市場", "ตลาด",
			},
			"restaurant": {
				"restaurant", "food", "eat", "dining", "street food", "cuisine",
				"restaurante", "レストラン", "ร้านอาหาร",
			},
			"viewpoint": {
				"viewpoint", "view", "panorama", "skyline", "observation",
				"mirador", "展望台", "จุดชมวิว",
			},
			"beach": {
				"beach", "island", "snorkel",
				"playa", "plage", "ビーチ", "หาด",
			},
		},
		PrimaryTriggers: []string{
			"must see", "must-see", "top attractions", "main attractions",
			"main sights", "highlights", "most famous", "best known",
			"imprescindible", "incontournable", "定番", "ห้ามพลาด",
		},
	}
}

// Categories returns the category labels in deterministic (sorted) order.
func (c *Config) Categories() []string {
	categories := make([]string, 0, len(c.Vocabulary))
	for category := range c.Vocabulary {
		categories = append(categories, category)
	}
	sort.Strings(categories)
	return categories
}

// Keywords returns the trigger keywords for a category, or nil if the
// category is not in the vocabulary.
func (c *Config) Keywords(category string) []string {
	return c.Vocabulary[category]
}

// normalize lowercases vocabulary and triggers so matching is
// case-insensitive regardless of how the config was authored.
func (c *Config) normalize() {
	for category, keywords := range c.Vocabulary {
		lowered := make([]string, len(keywords))
		for i, kw := range keywords {
			lowered[i] = strings.ToLower(kw)
		}
		c.Vocabulary[category] = lowered
	}
	for i, trigger := range c.PrimaryTriggers {
		c.PrimaryTriggers[i] = strings.ToLower(trigger)
	}
}

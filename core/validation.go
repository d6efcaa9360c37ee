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


package core

import (
	"fmt"
	"time"
)

// ValidateEntity validates an Entity according to domain rules.
//
// Validation rules:
//   - Name must not be empty
//   - Attraction must be valid (Primary or Secondary)
//   - Lat must be in [-90, 90], Lon in [-180, 180]
//
// NOT validated (populated by ingest):
//   - Vector (can be empty until the embedding pass runs)
//   - ID (0 is valid from database sequences)
func ValidateEntity(entity *Entity) error {
	if entity == nil {
		return fmt.Errorf("%w: entity is nil", ErrInvalidEntity)
	}

	if entity.Name == "" {
		return fmt.Errorf("%w: %w", ErrInvalidEntity, ErrEmptyEntityName)
	}

	if err := ValidateAttractionType(entity.Attraction); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidEntity, err)
	}

	if entity.Lat < -90 || entity.Lat > 90 || entity.Lon < -180 || entity.Lon > 180 {
		return fmt.Errorf("%w: %w", ErrInvalidEntity, ErrInvalidCoordinates)
	}

	return nil
}

// ValidateTurn validates a conversation Turn according to domain rules.
//
// Validation rules:
//   - Contents must not be empty
//   - Speaker must be valid (Human or AI)
//   - Timestamp must not be in the future (zero is allowed; the store
//     stamps it on append)
func ValidateTurn(turn *Turn) error {
	if turn == nil {
		return fmt.Errorf("%w: turn is nil", ErrInvalidTurn)
	}

	if turn.Contents == "" {
		return fmt.Errorf("%w: %w", ErrInvalidTurn, ErrEmptyContent)
	}

	if err := ValidateSpeakerType(turn.Speaker); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidTurn, err)
	}

	if !turn.Timestamp.IsZero() && !IsValidTimestamp(turn.Timestamp) {
		return fmt.Errorf("%w: %w", ErrInvalidTurn, ErrInvalidTimestamp)
	}

	return nil
}

// ValidateSpeakerType validates that a SpeakerType has a valid value.
func ValidateSpeakerType(speaker SpeakerType) error {
	if speaker != SpeakerTypeHuman && speaker != SpeakerTypeAI {
		return fmt.Errorf("%w: value %d", ErrInvalidSpeakerType, speaker)
	}
	return nil
}

// ValidateAttractionType validates that an AttractionType has a valid value.
func ValidateAttractionType(attraction AttractionType) error {
	if attraction != AttractionTypePrimary && attraction != AttractionTypeSecondary {
		return fmt.Errorf("%w: value %d", ErrInvalidAttractionType, attraction)
	}
	return nil
}

// IsValidTimestamp checks if a timestamp is valid (not in the future).
func IsValidTimestamp(ts time.Time) bool {
	return !ts.After(time.Now())
}

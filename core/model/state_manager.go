// Package model provides state management for machine learning models.
package model

import (
	"sync"

	"github.com/YuminosukeSato/automl/pkg/errors"
)

// StateManager manages the fitted state of a model in a thread-safe manner.
// It is the composition alternative to embedding BaseEstimator.
type StateManager struct {
	Fitted bool // Public for gob encoding
	mu     sync.RWMutex

	// Metadata recorded at fit time - Public for gob encoding
	NFeatures int
	NSamples  int
}

// NewStateManager creates a new StateManager instance.
func NewStateManager() *StateManager {
	return &StateManager{}
}

// IsFitted returns whether the model has been fitted.
func (s *StateManager) IsFitted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Fitted
}

// SetFitted marks the model as fitted and records its training shape.
func (s *StateManager) SetFitted(nFeatures, nSamples int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Fitted = true
	s.NFeatures = nFeatures
	s.NSamples = nSamples
}

// Reset resets the fitted state.
func (s *StateManager) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Fitted = false
	s.NFeatures = 0
	s.NSamples = 0
}

// RequireFitted returns a NotFittedError if the model has not been fitted, and a
// DimensionError if nFeatures differs from the training width.
func (s *StateManager) RequireFitted(modelName, method string, nFeatures int) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.Fitted {
		return errors.NewNotFittedError(modelName, method)
	}
	if nFeatures != s.NFeatures {
		return errors.NewDimensionError(modelName+"."+method, s.NFeatures, nFeatures, 1)
	}
	return nil
}

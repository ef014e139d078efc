/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package persistence

import "fmt"

// EntityState is the tracking state of an entity inside a Context.
type EntityState int

const (
	Detached EntityState = iota
	Unchanged
	Added
	Modified
	Deleted
)

func (s EntityState) String() string {
	switch s {
	case Unchanged:
		return "Unchanged"
	case Added:
		return "Added"
	case Modified:
		return "Modified"
	case Deleted:
		return "Deleted"
	default:
		return "Detached"
	}
}

// Entry exposes the tracking state of one entity.
type Entry struct {
	ctx    *Context
	entity Identifiable
}

// State returns the current tracking state, Detached when untracked.
func (e *Entry) State() EntityState {
	if checkEntity(e.entity) != nil {
		return Detached
	}
	e.ctx.mu.Lock()
	defer e.ctx.mu.Unlock()
	if tracked, ok := e.ctx.entries[e.entity]; ok {
		return tracked.state
	}
	return Detached
}

// SetState moves the entity to state, attaching it first when it is not
// tracked yet. Attaching fails with ErrIdentityConflict when another instance
// with the same key is tracked.
//
// Deleting an entity that was only added detaches it; adding an entity that
// was marked deleted turns it into a full update. Adding an unchanged or
// modified entity stages a new insert of it.
func (e *Entry) SetState(state EntityState) error {
	if err := checkEntity(e.entity); err != nil {
		return err
	}
	c := e.ctx
	c.mu.Lock()
	defer c.mu.Unlock()

	tracked, ok := c.entries[e.entity]
	if !ok {
		if state == Detached {
			return nil
		}
		_, err := c.track(e.entity, state)
		if err == nil {
			c.logger.Debug("Entity attached", "entity", keyOf(e.entity).typ.String(), "id", e.entity.GetID(), "state", state)
		}
		return err
	}

	switch {
	case state == Deleted && tracked.state == Added:
		state = Detached
	case state == Added && tracked.state == Deleted:
		state = Modified
	case state == Added && tracked.state == Added:
		return nil
	case state == Added:
		// a tracked instance is inserted again under its current id
		key := keyOf(e.entity)
		if other, ok := c.identity[key]; ok && key.id != 0 && other != tracked {
			return fmt.Errorf("%w: %s id=%d", ErrIdentityConflict, key.typ, key.id)
		}
		c.rekey(tracked)
	case state == Modified && tracked.state == Added:
		// still pending insert, which writes every column anyway
		return nil
	}
	c.setState(tracked, state)
	return nil
}

// Revert puts the entity back into state without the transition rules of
// SetState, e.g. to drop a change whose save failed. Reverting to Detached
// stops tracking the entity.
func (e *Entry) Revert(state EntityState) {
	if checkEntity(e.entity) != nil {
		return
	}
	c := e.ctx
	c.mu.Lock()
	defer c.mu.Unlock()

	tracked, ok := c.entries[e.entity]
	if !ok {
		if state != Detached {
			_, _ = c.track(e.entity, state)
		}
		return
	}
	c.rekey(tracked)
	c.setState(tracked, state)
}

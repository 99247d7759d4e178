package service

import (
	"fmt"
	"time"
)

// Clock reports the current time in the configured timezone
type Clock struct {
	loc *time.Location
	now func() time.Time
}

// NewClock creates a clock for the named IANA timezone
func NewClock(timezone string) (*Clock, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %s: %w", timezone, err)
	}
	return &Clock{loc: loc, now: time.Now}, nil
}

// Now returns the current time in the clock's timezone
func (c *Clock) Now() time.Time {
	return c.now().In(c.loc)
}

// Context renders the current date and time for grounding model instructions
func (c *Clock) Context() string {
	now := c.Now()
	return fmt.Sprintf("Current date and time: %s (%s).", now.Format("Monday, 2 January 2006, 15:04"), c.loc.String())
}

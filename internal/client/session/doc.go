// Package session owns the unlocked-database session.
//
// Manager drives the state machine described by Transition:
//
//	LOCKED --query, no credential--> UNLOCKING
//	UNLOCKING --probe ok--> UNLOCKED
//	UNLOCKING --probe rejected--> ERROR --reported--> LOCKED
//	UNLOCKING --prompt dismissed / config error--> LOCKED
//	UNLOCKED --expired / rejected / lock--> LOCKED
//	UNLOCKED --query ok--> UNLOCKED (inactivity countdown restarted)
//
// Unlock attempts are serialized: concurrent queries that find the session
// locked share one prompt and one probe and all observe its outcome.
// Expiry is checked at the start of every credentialed call; there is no
// background timer.
//
// Manager is the only component that mutates the credential store in
// response to oracle failures.
package session

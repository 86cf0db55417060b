// Package engine contains the game loop and the state mutation logic.
// This is the heartbeat of "Well Builder".
//
// ARCHITECTURAL RULE: The Engine owns the only GameState. Transports call its
// commands and read copies; they never touch the aggregate directly. Every
// observable change is announced on the EventLog.
package engine

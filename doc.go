/*
Package maquette is a self-correcting script agent for remote creative
applications. It turns a natural-language instruction into host-language
scripts, runs them against the application through a command channel, and
feeds every failure back to the planner until the instruction is satisfied or
the retry budget runs out.

It implements a "Bounded Correction Loop over a PULL Channel" architecture,
separating the planning brain (Planner) from script execution (CommandChannel)
and the host itself (Surface).

# Concept

The host application is a shared, stateful machine: scripts mutate its scene,
only one script may run at a time, and what a script may do depends on the
host's current UI context. The agent never assumes a script worked. Every
execution comes back with a verdict, the verdict is classified, and a failed
turn becomes input for the next planning round. Observations (viewport
renders, captured logs) are pulled only when the planner asks for them.

# Key Features

  - Bounded Correction: A retry budget caps how long the agent keeps trying.
  - Hexagonal Architecture: Core loop is decoupled from adapters (Planner,
    Channel, Storage).
  - Context Resolution: Operation categories map to host UI contexts, so
    scripts run where their operators are valid.
  - Full Audit Trail: Terminated sessions keep every turn, verdict and
    observation.

# Usage

Initialize an Agent and hand it an instruction. The default configuration
plans with Gemini and executes through the local host bridge.

	package main

	import (
		"context"
		"fmt"
		"log"
		"os"

		"github.com/aretw0/maquette"
	)

	func main() {
		agent, err := maquette.New(maquette.Config{
			APIKey: os.Getenv("GEMINI_API_KEY"),
		})
		if err != nil {
			log.Fatal(err)
		}

		session, err := agent.Run(context.Background(), "add a red cube and render it")
		if err != nil {
			log.Fatal(err)
		}

		fmt.Println(session.Status, session.FinalAnswer)
		for _, turn := range session.Turns {
			fmt.Printf("#%d %s -> %s\n", turn.Seq, turn.Script.Category, turn.Kind)
		}
	}

For tests or embedded setups, inject your own planner and channel with
WithPlanner and WithChannel; the in-process scene simulator under
internal/adapters/scene pairs with the channel for a fully local loop.
*/
package maquette

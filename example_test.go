package maquette_test

import (
	"context"
	"fmt"
	"log"

	"github.com/aretw0/maquette"
	"github.com/aretw0/maquette/internal/adapters/scene"
	"github.com/aretw0/maquette/internal/channel"
	"github.com/aretw0/maquette/internal/testutils"
)

// This example runs the whole loop in-process: a scripted planner stands in
// for Gemini and the scene simulator stands in for the host. This is useful
// for testing, embedded scenarios, or when you don't want a live host at all.
func Example() {
	planner := testutils.NewScriptedPlanner(
		testutils.PlanScript("add_object cube crate", "scene-build"),
	)

	agent, err := maquette.New(maquette.Config{},
		maquette.WithPlanner(planner),
		maquette.WithChannel(channel.New(scene.New())),
	)
	if err != nil {
		log.Fatal(err)
	}

	session, err := agent.Run(context.Background(), "put a crate in the scene")
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(session.Status)
	fmt.Println(len(session.Turns))
	// Output:
	// completed
	// 1
}

// Correction in action: the first script references an object that does not
// exist, the host's trace comes back classified, and the second attempt
// builds the object first.
func Example_correction() {
	planner := testutils.NewScriptedPlanner(
		testutils.PlanScript("set_color crate red", "scene-build"),
		testutils.PlanScript("add_object cube crate red", "scene-build"),
	)

	agent, err := maquette.New(maquette.Config{},
		maquette.WithPlanner(planner),
		maquette.WithChannel(channel.New(scene.New())),
	)
	if err != nil {
		log.Fatal(err)
	}

	session, err := agent.Run(context.Background(), "make a red crate")
	if err != nil {
		log.Fatal(err)
	}

	for _, turn := range session.Turns {
		fmt.Printf("#%d %s\n", turn.Seq, turn.Kind)
	}
	// Output:
	// #1 runtime_error
	// #2 success
}

package main

import (
	"fmt"

	"github.com/akmonengine/bedrock"
	"github.com/akmonengine/bedrock/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// A box dropped on a static floor: the simplest possible scene,
// printing the box position while it falls, lands and goes to sleep.
func main() {
	world, err := bedrock.NewWorld(mgl64.Vec3{0, -9.81, 0}, 1.0/60.0)
	if err != nil {
		panic(err)
	}

	floorShape := &actor.Box{HalfExtents: mgl64.Vec3{5, 0.25, 5}}
	_, err = world.CreateStaticBody(
		actor.NewTransformAt(mgl64.Vec3{0, -0.25, 0}, mgl64.QuatIdent()),
		floorShape,
	)
	if err != nil {
		panic(err)
	}

	boxShape := &actor.Box{HalfExtents: mgl64.Vec3{0.5, 0.5, 0.5}}
	box, err := world.CreateRigidBody(
		actor.NewTransformAt(mgl64.Vec3{0, 5, 0}, mgl64.QuatIdent()),
		5.0,
		boxShape.ComputeInertia(5.0),
		boxShape,
	)
	if err != nil {
		panic(err)
	}

	world.Events.Subscribe(bedrock.COLLISION_ENTER, func(event bedrock.Event) {
		e := event.(bedrock.CollisionEnterEvent)
		fmt.Printf("contact between body %d and body %d\n", e.BodyA.ID(), e.BodyB.ID())
	})
	world.Events.Subscribe(bedrock.ON_SLEEP, func(event bedrock.Event) {
		e := event.(bedrock.SleepEvent)
		fmt.Printf("body %d fell asleep\n", e.Body.ID())
	})

	world.Start()
	defer world.Stop()

	for step := 0; step < 300; step++ {
		if err := world.Update(); err != nil {
			panic(err)
		}

		if step%30 == 0 {
			position := box.Transform.Position
			fmt.Printf("t=%.2fs box y=%.3f |v|=%.3f\n",
				float64(step)/60.0, position.Y(), box.Velocity.Len())
		}
	}
}

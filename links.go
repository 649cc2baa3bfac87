package bedrock

import "github.com/akmonengine/bedrock/actor"

// linkNode is one cell of an intrusive singly-linked list stored in a
// per-world arena. Bodies hold only the head index of their contact
// and joint lists, which avoids the cyclic ownership between bodies
// and the constraints referencing them.
type linkNode[T comparable] struct {
	payload T
	next    int
}

type linkPool[T comparable] struct {
	nodes []linkNode[T]
	free  []int
}

// push prepends a payload to the list starting at head and returns the
// new head index
func (p *linkPool[T]) push(head int, payload T) int {
	var index int
	if n := len(p.free); n > 0 {
		index = p.free[n-1]
		p.free = p.free[:n-1]
		p.nodes[index] = linkNode[T]{payload: payload, next: head}
	} else {
		index = len(p.nodes)
		p.nodes = append(p.nodes, linkNode[T]{payload: payload, next: head})
	}
	return index
}

// remove unlinks the first node carrying the payload and returns the
// new head index
func (p *linkPool[T]) remove(head int, payload T) int {
	prev := actor.NilLink
	for index := head; index != actor.NilLink; index = p.nodes[index].next {
		if p.nodes[index].payload != payload {
			prev = index
			continue
		}

		next := p.nodes[index].next
		p.release(index)
		if prev == actor.NilLink {
			return next
		}
		p.nodes[prev].next = next
		return head
	}
	return head
}

// each visits every payload of the list starting at head
func (p *linkPool[T]) each(head int, fn func(T)) {
	for index := head; index != actor.NilLink; index = p.nodes[index].next {
		fn(p.nodes[index].payload)
	}
}

func (p *linkPool[T]) release(index int) {
	var zero T
	p.nodes[index].payload = zero
	p.nodes[index].next = actor.NilLink
	p.free = append(p.free, index)
}

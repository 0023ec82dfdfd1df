// Package stream provides pull-based lazy sequences.
//
// A Seq[T] yields values one at a time: the consumer calls Next to pull the
// next element, and the producer advances only in response to that pull.
// Backpressure is therefore the consumer's pull rate; a slow consumer never
// forces buffering beyond the element in flight.
//
// Sequences are single-consumer. Close releases whatever the producer holds
// (a network body, a goroutine, a file) and is safe to call more than once.
//
// # Usage
//
//	seq := stream.FromSlice([]int{1, 2, 3})
//	defer seq.Close()
//	for {
//	    v, ok, err := seq.Next(ctx)
//	    if err != nil || !ok {
//	        break
//	    }
//	    use(v)
//	}
//
// Collect and Drain cover the common terminal patterns.
package stream

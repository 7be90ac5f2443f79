/*
Package feed defines the values a stream hands to its consumer.

	+-----------+        +-------------+
	|  Stream   | -----> |    Event    |
	+-----------+        +------+------+
	                            |
	              +-------------+-------------+
	              |                           |
	      +-------+-------+           +-------+-------+
	      |  Delivered    |           |    Failed     |
	      |  (Product)    |           |    (error)    |
	      +---------------+           +---------------+

🎯 Purpose:
- Product carries one retrieved file (name + bytes)
- Event is the tagged variant a stream yields, never an exception

📝 Consumers switch on Event.Kind:

	switch ev.Kind() {
	case feed.KindDelivered:
		p, _ := ev.Product()
		fmt.Println(p.Filename(), p.MimeType())
	case feed.KindFailed:
		log.Println(ev.Err())
	}
*/
package feed

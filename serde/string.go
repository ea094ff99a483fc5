package serde

var StringSerializer = func(data string) ([]byte, error) {
	return []byte(data), nil
}

var StringDeserializer = func(data []byte) (string, error) {
	return string(data), nil
}

var String = Serde[string]{
	Serializer:   StringSerializer,
	Deserializer: StringDeserializer,
}

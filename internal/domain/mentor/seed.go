package mentor

// DefaultDirectory returns the built-in mentor directory. Each call returns a fresh copy.
func DefaultDirectory() []Mentor {
	return []Mentor{
		{
			ID:           "1",
			Name:         "Priya Singh",
			Skill:        "Web Development",
			Bio:          "Full-stack developer helping rural students learn coding in Hindi",
			Rating:       4.9,
			Sessions:     156,
			Languages:    []string{"Hindi", "English"},
			Location:     "Delhi",
			Experience:   "5 years",
			Availability: "Available now",
			Tags:         []string{"HTML", "CSS", "JavaScript", "React"},
			Price:        "Free",
			IsOnline:     true,
		},
		{
			ID:           "2",
			Name:         "Arjun Patel",
			Skill:        "Mobile App Development",
			Bio:          "Android developer passionate about teaching in regional languages",
			Rating:       4.8,
			Sessions:     203,
			Languages:    []string{"Gujarati", "Hindi", "English"},
			Location:     "Ahmedabad",
			Experience:   "7 years",
			Availability: "Available in 2 hours",
			Tags:         []string{"Android", "Flutter", "Kotlin", "Java"},
			Price:        "₹200/session",
			IsOnline:     false,
		},
		{
			ID:           "3",
			Name:         "Kavya Reddy",
			Skill:        "Data Science",
			Bio:          "Data scientist making analytics accessible to everyone",
			Rating:       4.9,
			Sessions:     98,
			Languages:    []string{"Telugu", "English"},
			Location:     "Hyderabad",
			Experience:   "4 years",
			Availability: "Available tomorrow",
			Tags:         []string{"Python", "Machine Learning", "Statistics"},
			Price:        "₹300/session",
			IsOnline:     true,
		},
		{
			ID:           "4",
			Name:         "Rohit Kumar",
			Skill:        "UI/UX Design",
			Bio:          "Design mentor helping students create beautiful user experiences",
			Rating:       4.7,
			Sessions:     134,
			Languages:    []string{"Punjabi", "Hindi", "English"},
			Location:     "Chandigarh",
			Experience:   "6 years",
			Availability: "Available now",
			Tags:         []string{"Figma", "Adobe XD", "User Research", "Prototyping"},
			Price:        "Free",
			IsOnline:     true,
		},
		{
			ID:           "5",
			Name:         "Anita Sharma",
			Skill:        "Digital Marketing",
			Bio:          "Marketing expert teaching online business skills",
			Rating:       4.8,
			Sessions:     87,
			Languages:    []string{"Hindi", "English"},
			Location:     "Jaipur",
			Experience:   "3 years",
			Availability: "Available in 1 hour",
			Tags:         []string{"SEO", "Social Media", "Content Marketing"},
			Price:        "₹150/session",
			IsOnline:     false,
		},
		{
			ID:           "6",
			Name:         "Vikash Singh",
			Skill:        "Photography",
			Bio:          "Professional photographer sharing creative skills",
			Rating:       4.6,
			Sessions:     76,
			Languages:    []string{"Hindi", "Bhojpuri"},
			Location:     "Patna",
			Experience:   "8 years",
			Availability: "Available now",
			Tags:         []string{"Portrait", "Wedding", "Street Photography"},
			Price:        "₹250/session",
			IsOnline:     true,
		},
	}
}
